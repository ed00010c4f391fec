package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"docxodus/annotate"
	"docxodus/config"
	"docxodus/docpkg"
	"docxodus/state"
	"docxodus/wml"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input document has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".html"
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Overwrite = cmd.Bool("overwrite")

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process converts a single document package to HTML.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	pkg, err := docpkg.Open(src, log)
	if err != nil {
		return err
	}

	html, err := Convert(pkg, &env.Cfg.Document, filepath.Base(src), log)
	if err != nil {
		return err
	}

	if _, err := os.Stat(dst); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", dst)
		}
		log.Warn("Overwriting existing file", zap.String("file", dst))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	html.Indent(2)
	if err := html.WriteToFile(dst); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	if env.Rpt != nil {
		env.Rpt.Store("result"+filepath.Ext(dst), dst)
	}
	return nil
}

// Convert renders the package's main document part as HTML. Annotation
// bookmark ranges present in the package are highlighted along the way.
// Conversion itself never fails on document content - only package access
// problems surface as errors.
func Convert(pkg *docpkg.Package, cfg *config.DocumentConfig, title string, log *zap.Logger) (*etree.Document, error) {
	part, err := pkg.PartDocument(docpkg.DocumentPartName)
	if err != nil {
		log.Warn("Main document part is not readable, producing empty document", zap.Error(err))
		part = nil
	}
	doc := wml.ParseDocumentXML(part, log)

	annotations, err := annotate.LoadAnnotations(pkg, log)
	if err != nil {
		return nil, err
	}
	infos := make(map[string]AnnotationInfo, len(annotations))
	for _, a := range annotations {
		infos[a.BookmarkName] = AnnotationInfo{ID: a.ID, Label: a.Label, Color: a.Color}
	}

	tr := NewTransformer(cfg, pkg, infos, log)
	return tr.Transform(doc, title), nil
}
