package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"docxodus/annotate"
	"docxodus/docpkg"
	"docxodus/state"
	"docxodus/wml"
)

// openSource opens the package named by the first positional argument.
func openSource(cmd *cli.Command, log *zap.Logger) (*docpkg.Package, string, error) {
	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return nil, "", errors.New("no input document has been specified")
	}
	pkg, err := docpkg.Open(src, log)
	if err != nil {
		return nil, "", err
	}
	return pkg, src, nil
}

// savePackage writes the modified package, replacing dst atomically when it
// is the source file itself.
func savePackage(pkg *docpkg.Package, dst string) error {
	tmp, err := os.CreateTemp(".", ".docxodus-*")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if err := pkg.SaveTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to save document package: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(name, dst); err != nil {
		return fmt.Errorf("unable to replace destination (%s): %w", dst, err)
	}
	return nil
}

func parseDocument(pkg *docpkg.Package, log *zap.Logger) *wml.Document {
	part, err := pkg.PartDocument(docpkg.DocumentPartName)
	if err != nil {
		log.Warn("Main document part is not readable, using empty placeholder", zap.Error(err))
		part = nil
	}
	return wml.ParseDocumentXML(part, log)
}

// targetFromFlags builds the annotation target from mutually exclusive flag
// groups: --text (optionally scoped with --in), --bookmark, --paragraph/--run
// or --table/--row/--cell.
func targetFromFlags(cmd *cli.Command) (annotate.Target, error) {
	switch {
	case cmd.String("text") != "":
		if in := cmd.String("in"); in != "" {
			return annotate.ByTextSearchIn(in, cmd.String("text"), cmd.Int("occurrence")), nil
		}
		return annotate.ByTextSearch(cmd.String("text"), cmd.Int("occurrence")), nil
	case cmd.String("bookmark") != "":
		return annotate.ByElementID(cmd.String("bookmark")), nil
	case cmd.Int("table") >= 0:
		return annotate.ByCell(cmd.Int("table"), cmd.Int("row"), cmd.Int("cell")), nil
	case cmd.Int("paragraph") >= 0:
		if run := cmd.Int("run"); run >= 0 {
			return annotate.ByRun(cmd.Int("paragraph"), run), nil
		}
		if end := cmd.Int("end-paragraph"); end >= 0 {
			return annotate.ByParagraphRange(cmd.Int("paragraph"), end), nil
		}
		return annotate.ByParagraph(cmd.Int("paragraph")), nil
	}
	return annotate.Target{}, errors.New("no annotation target specified, use --text, --bookmark, --paragraph or --table")
}

func annotateAdd(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("annotate")

	target, err := targetFromFlags(cmd)
	if err != nil {
		return err
	}
	pkg, src, err := openSource(cmd, log)
	if err != nil {
		return err
	}
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = src
	}

	doc := parseDocument(pkg, log)
	a, err := annotate.AddAnnotation(pkg, doc, target, cmd.String("label"), cmd.String("label-id"), cmd.String("color"), cmd.String("author"), log)
	if err != nil {
		return err
	}
	if err := savePackage(pkg, dst); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", a.ID, a.BookmarkName, a.Label)
	return nil
}

func annotateRemove(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("annotate")

	pkg, src, err := openSource(cmd, log)
	if err != nil {
		return err
	}
	id := cmd.Args().Get(1)
	if len(id) == 0 {
		return errors.New("no annotation id has been specified")
	}
	dst := cmd.Args().Get(2)
	if len(dst) == 0 {
		dst = src
	}

	doc := parseDocument(pkg, log)
	if err := annotate.RemoveAnnotation(pkg, doc, id, log); err != nil {
		return err
	}
	return savePackage(pkg, dst)
}

func annotateUpdate(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("annotate")

	pkg, src, err := openSource(cmd, log)
	if err != nil {
		return err
	}
	id := cmd.Args().Get(1)
	if len(id) == 0 {
		return errors.New("no annotation id has been specified")
	}
	dst := cmd.Args().Get(2)
	if len(dst) == 0 {
		dst = src
	}

	if err := annotate.UpdateAnnotation(pkg, id, cmd.String("label"), cmd.String("color"), log); err != nil {
		return err
	}
	return savePackage(pkg, dst)
}

func annotateList(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("annotate")

	pkg, _, err := openSource(cmd, log)
	if err != nil {
		return err
	}
	annotations, err := annotate.LoadAnnotations(pkg, log)
	if err != nil {
		return err
	}
	for _, a := range annotations {
		stale := ""
		if a.PageSpan != nil && a.PageSpan.Stale {
			stale = "\t(page span stale)"
		}
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\t%s%s\n", a.ID, a.BookmarkName, a.Label, a.Author, stale)
	}
	log.Info("Annotations listed", zap.Int("count", len(annotations)))
	return nil
}

func annotateExport(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("export")

	pkg, src, err := openSource(cmd, log)
	if err != nil {
		return err
	}
	doc := parseDocument(pkg, log)

	set, err := annotate.ExportAnnotations(pkg, doc, log)
	if err != nil {
		return err
	}
	data, err := set.Encode()
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("unable to write annotation set: %w", err)
	}
	log.Info("Annotation set exported", zap.String("source", src), zap.String("destination", dst), zap.Int("count", len(set.Annotations)))
	return nil
}
