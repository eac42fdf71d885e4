package inspect

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/sfc-typer/pkg/builder"
	"github.com/walteh/sfc-typer/pkg/mapping"
	"github.com/walteh/sfc-typer/pkg/workspace"
)

type MapHandler struct {
	file      string
	kind      string
	sourceMap bool
	offset    int

	fs  afero.Fs
	out io.Writer
}

func NewMapCommand() *cobra.Command {
	me := &MapHandler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "map [file]",
		Short: "print how an artifact maps back onto its component",
	}

	cmd.Flags().StringVar(&me.kind, "kind", string(builder.KindOptions), "artifact kind: options, render or bundle")
	cmd.Flags().BoolVar(&me.sourceMap, "source-map", false, "print the source map instead of the segments")
	cmd.Flags().IntVar(&me.offset, "offset", -1, "translate one original offset and print the generated text around it")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *MapHandler) Run(ctx context.Context) error {
	kind, err := builder.ParseKind(me.kind)
	if err != nil {
		return err
	}

	reg := workspace.NewRegistry(workspace.Options{})
	if _, err := reg.Load(ctx, me.fs, me.file); err != nil {
		return err
	}
	art, err := reg.GetArtifact(ctx, me.file, kind)
	if err != nil {
		return err
	}

	switch {
	case me.sourceMap:
		data, err := art.Mapper.SourceMap(art.VirtualPath, art.URI, true).JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(me.out, string(data))
		return err
	case me.offset >= 0:
		return me.translate(art)
	}

	tw := tabwriter.NewWriter(me.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OP\tORIGINAL\tGENERATED\tTEXT")
	for _, s := range art.Mapper.Segments() {
		text := s.Generated.Text(art.Text)
		original := "-"
		if s.Kind != mapping.OpInsert {
			original = s.Original.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Kind, original, s.Generated, excerpt(text))
	}
	return tw.Flush()
}

func (me *MapHandler) translate(art *workspace.Artifact) error {
	g, err := art.Mapper.TranslateToGenerated(me.offset)
	if err != nil {
		fmt.Fprintf(me.out, "warning: %s\n", err)
	}
	back, _ := art.Mapper.ToOriginal(g)
	_, err = fmt.Fprintf(me.out, "original %d -> generated %d -> original %d\n%s\n",
		me.offset, g, back, excerpt(art.Text[max(0, g-20):min(len(art.Text), g+20)]))
	return err
}

const excerptLimit = 40

func excerpt(s string) string {
	if len(s) > excerptLimit {
		s = s[:excerptLimit] + "…"
	}
	q := strconv.Quote(s)
	return q[1 : len(q)-1]
}
