package generate

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/sfc-typer/pkg/config"
	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/finder"
	"github.com/walteh/sfc-typer/pkg/workspace"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

type Handler struct {
	root       string
	configPath string
	kinds      []string
	outDir     string
	format     string
	sourceMaps bool
	watch      bool
	noColor    bool

	fs  afero.Fs
	out io.Writer
}

func NewGenerateCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "generate [root]",
		Short: "write the artifacts of every component under root",
	}

	cmd.Flags().StringVar(&me.configPath, "config", "", "configuration file (default: sfc-typer.hcl or sfc-typer.yaml in root)")
	cmd.Flags().StringSliceVar(&me.kinds, "kind", nil, "artifact kinds to write: options, render, bundle")
	cmd.Flags().StringVar(&me.outDir, "out-dir", "", "directory for the artifacts, relative to root")
	cmd.Flags().StringVar(&me.format, "format", "text", "diagnostic format: text or vscode")
	cmd.Flags().BoolVar(&me.sourceMaps, "source-maps", false, "write a source map next to every artifact")
	cmd.Flags().BoolVar(&me.watch, "watch", false, "regenerate when components change")
	cmd.Args = cobra.MaximumNArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.root = "."
		if len(args) == 1 {
			me.root = args[0]
		}
		me.out = cmd.OutOrStdout()
		me.noColor, _ = cmd.Flags().GetBool("no-color")
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if me.configPath != "" {
		cfg, err = config.Load(me.fs, me.configPath)
	} else {
		cfg, _, err = config.Find(me.fs, me.root)
	}
	if err != nil {
		return nil, err
	}

	if len(me.kinds) > 0 {
		cfg.Kinds = me.kinds
	}
	if me.outDir != "" {
		cfg.OutDir = me.outDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func (me *Handler) Run(ctx context.Context) error {
	log := zerolog.Ctx(ctx)

	cfg, err := me.loadConfig()
	if err != nil {
		return err
	}

	opts := cfg.WorkspaceOptions()
	opts.Indent = func(uri string) string {
		indent, err := config.IndentFor(me.fs, me.root, uri)
		if err != nil {
			log.Warn().Err(err).Str("uri", uri).Msg("ignoring .editorconfig")
			return ""
		}
		return indent
	}
	reg := workspace.NewRegistry(opts)

	files, err := me.collect(ctx, cfg)
	if err != nil {
		return err
	}

	err = me.generateAll(ctx, reg, cfg, files)
	if !me.watch {
		return err
	}
	if err != nil {
		log.Error().Err(err).Msg("initial generation failed")
	}
	return me.watchLoop(ctx, reg, cfg)
}

// collect lists the components under root the configuration selects.
func (me *Handler) collect(ctx context.Context, cfg *config.Config) ([]string, error) {
	return finder.NewDefaultFinder(me.fs).FindComponents(ctx, me.root, cfg.Matches)
}

// generateAll writes every file's artifacts. A failing file is reported and
// the rest are still written.
func (me *Handler) generateAll(ctx context.Context, reg *workspace.Registry, cfg *config.Config, files []string) error {
	var errs error
	for _, file := range files {
		if err := me.generateFile(ctx, reg, cfg, file); err != nil {
			errs = multierr.Append(errs, errors.Errorf("%s: %w", file, err))
		}
	}
	zerolog.Ctx(ctx).Info().
		Int("files", len(files)).
		Int("failed", len(multierr.Errors(errs))).
		Int64("generated", reg.Generations()).
		Msg("generated artifacts")
	return errs
}

func (me *Handler) generateFile(ctx context.Context, reg *workspace.Registry, cfg *config.Config, file string) error {
	doc, err := reg.Load(ctx, me.fs, file)
	if err != nil {
		return err
	}
	arts, err := reg.GetArtifacts(ctx, file, cfg.ArtifactKinds()...)
	if err != nil {
		return err
	}

	for _, a := range arts {
		dest := me.destination(cfg, a.VirtualPath)
		if err := me.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return errors.Errorf("creating %s: %w", filepath.Dir(dest), err)
		}
		if err := afero.WriteFile(me.fs, dest, []byte(a.Text), 0o644); err != nil {
			return errors.Errorf("writing %s: %w", dest, err)
		}
		if me.sourceMaps {
			if err := me.writeSourceMap(a, dest); err != nil {
				return err
			}
		}
	}

	return me.report(doc, arts)
}

func (me *Handler) writeSourceMap(a *workspace.Artifact, dest string) error {
	source, err := filepath.Rel(filepath.Dir(dest), a.URI)
	if err != nil {
		source = a.URI
	}
	data, err := a.Mapper.SourceMap(filepath.Base(dest), filepath.ToSlash(source), false).JSON()
	if err != nil {
		return err
	}
	if err := afero.WriteFile(me.fs, dest+".map", data, 0o644); err != nil {
		return errors.Errorf("writing %s.map: %w", dest, err)
	}
	return nil
}

// destination places an artifact under the output directory, keeping its
// path relative to root.
func (me *Handler) destination(cfg *config.Config, virtualPath string) string {
	if cfg.OutDir == "" {
		return virtualPath
	}
	out := cfg.OutDir
	if !filepath.IsAbs(out) {
		out = filepath.Join(me.root, out)
	}
	rel, err := filepath.Rel(me.root, virtualPath)
	if err != nil {
		rel = filepath.Base(virtualPath)
	}
	return filepath.Join(out, rel)
}

// report prints the diagnostics of all kinds once each.
func (me *Handler) report(doc workspace.SourceDocument, arts []*workspace.Artifact) error {
	seen := map[string]bool{}
	var diags diagnostic.Diagnostics
	for _, a := range arts {
		for _, d := range a.Diagnostics {
			if key := d.String(); !seen[key] {
				seen[key] = true
				diags = append(diags, d)
			}
		}
	}
	if len(diags) == 0 {
		return nil
	}

	f, err := diagnostic.NewFormatter(me.format, !me.noColor)
	if err != nil {
		return err
	}
	out, err := f.Format(doc.URI, doc.Text, diags)
	if err != nil {
		return err
	}
	if _, err := me.out.Write(out); err != nil {
		return errors.Errorf("writing diagnostics: %w", err)
	}
	return nil
}

func (me *Handler) watchLoop(ctx context.Context, reg *workspace.Registry, cfg *config.Config) error {
	log := zerolog.Ctx(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	err = afero.Walk(me.fs, me.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		return errors.Errorf("watching %s: %w", me.root, err)
	}

	log.Info().Str("root", me.root).Msg("watching for changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			me.handleEvent(ctx, reg, cfg, w, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (me *Handler) handleEvent(ctx context.Context, reg *workspace.Registry, cfg *config.Config, w *fsnotify.Watcher, ev fsnotify.Event) {
	log := zerolog.Ctx(ctx)

	if ev.Has(fsnotify.Create) {
		if info, err := me.fs.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.Add(ev.Name); err != nil {
				log.Warn().Err(err).Str("dir", ev.Name).Msg("cannot watch directory")
			}
			return
		}
	}

	rel, err := filepath.Rel(me.root, ev.Name)
	if err != nil || !cfg.Matches(rel) {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		reg.Close(ctx, ev.Name)
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		if err := me.generateFile(ctx, reg, cfg, ev.Name); err != nil {
			log.Error().Err(err).Str("file", ev.Name).Msg("regeneration failed")
		}
	}
}
