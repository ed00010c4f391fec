package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"docxodus/annotate"
	"docxodus/convert"
	"docxodus/docpkg"
	"docxodus/state"
)

func projectSet(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("project")

	pkg, src, err := openSource(cmd, log)
	if err != nil {
		return err
	}
	setPath := cmd.Args().Get(1)
	if len(setPath) == 0 {
		return errors.New("no annotation set has been specified")
	}
	data, err := os.ReadFile(setPath)
	if err != nil {
		return fmt.Errorf("unable to read annotation set: %w", err)
	}
	set, err := annotate.DecodeSet(data)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(2)
	if len(dst) == 0 {
		dst = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".html"
	}
	if _, err := os.Stat(dst); err == nil && !cmd.Bool("overwrite") {
		return fmt.Errorf("output file already exists: %s", dst)
	}

	if set.ContentHash != pkg.ContentHash() {
		log.Warn("Annotation set was exported from different document content, projecting anyway",
			zap.String("set", set.ContentHash), zap.String("document", pkg.ContentHash()))
	}

	html, err := convert.Convert(pkg, &env.Cfg.Document, filepath.Base(src), log)
	if err != nil {
		return err
	}
	projected := annotate.NewProjector(env.Cfg.Document.Annotations.Class, log).Project(set, html)
	log.Info("Annotation set projected", zap.Int("projected", projected), zap.Int("total", len(set.Annotations)))

	html.Indent(2)
	if err := html.WriteToFile(dst); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	if env.Rpt != nil {
		env.Rpt.Store("result"+filepath.Ext(dst), dst)
	}
	return nil
}

func validateSet(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("validate")

	pkg, _, err := openSource(cmd, log)
	if err != nil {
		return err
	}
	setPath := cmd.Args().Get(1)
	if len(setPath) == 0 {
		return errors.New("no annotation set has been specified")
	}
	data, err := os.ReadFile(setPath)
	if err != nil {
		return fmt.Errorf("unable to read annotation set: %w", err)
	}
	set, err := annotate.DecodeSet(data)
	if err != nil {
		return err
	}

	issues := annotate.Validate(set, pkg, parseDocument(pkg, log), log)
	for _, issue := range issues {
		fmt.Fprintln(os.Stdout, issue.String())
	}
	if len(issues) == 0 {
		fmt.Fprintln(os.Stdout, "annotation set is valid")
		return nil
	}
	return annotate.CombineIssues(issues)
}

func dumpPackage(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("dump")

	pkg, src, err := openSource(cmd, log)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "package: %s\nhash: %s\n\nparts:\n", src, pkg.ContentHash())
	names := pkg.PartNames()
	sort.Strings(names)
	for _, name := range names {
		data, _ := pkg.PartBytes(name)
		fmt.Fprintf(os.Stdout, "  %-60s %8d bytes\n", name, len(data))
	}

	if custom := pkg.CustomParts(); len(custom) > 0 {
		fmt.Fprintln(os.Stdout, "\ncustom parts:")
		for _, name := range custom {
			fmt.Fprintf(os.Stdout, "  %s\n", name)
		}
	}

	rels := pkg.Relationships(docpkg.DocumentPartName)
	if len(rels) > 0 {
		ids := make([]string, 0, len(rels))
		for id := range rels {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Fprintln(os.Stdout, "\ndocument relationships:")
		for _, id := range ids {
			r := rels[id]
			kind := "internal"
			if r.External {
				kind = "external"
			}
			fmt.Fprintf(os.Stdout, "  %-8s %-8s %s\n", id, kind, r.Target)
		}
	}

	fmt.Fprintln(os.Stdout, "\ndocument tree:")
	dumpTree(os.Stdout, parseDocument(pkg, log))
	return nil
}
