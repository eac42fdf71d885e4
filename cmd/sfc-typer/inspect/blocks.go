package inspect

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/workspace"
)

type BlocksHandler struct {
	file    string
	dump    bool
	noColor bool

	fs  afero.Fs
	out io.Writer
}

func NewBlocksCommand() *cobra.Command {
	me := &BlocksHandler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "blocks [file]",
		Short: "print the blocks of a component",
	}

	cmd.Flags().BoolVar(&me.dump, "dump", false, "pretty print the whole descriptor")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
		me.out = cmd.OutOrStdout()
		me.noColor, _ = cmd.Flags().GetBool("no-color")
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *BlocksHandler) Run(ctx context.Context) error {
	reg := workspace.NewRegistry(workspace.Options{})
	if _, err := reg.Load(ctx, me.fs, me.file); err != nil {
		return err
	}
	doc, _ := reg.Get(ctx, me.file)
	d := doc.Descriptor

	if me.dump {
		printer := pp.New()
		printer.SetColoringEnabled(!me.noColor)
		printer.SetOutput(me.out)
		_, err := printer.Println(d.Blocks)
		return err
	}

	heading := color.New(color.Bold)
	heading.DisableColor()
	if !me.noColor {
		heading.EnableColor()
	}

	li := position.NewLineIndex(doc.Text)
	tw := tabwriter.NewWriter(me.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, heading.Sprint("TYPE\tTAG\tLANG\tCONTENT\tSTART\tEND"))
	for _, b := range d.Blocks {
		start := li.PlaceOf(b.Content.Start, position.ColumnGraphemes)
		end := li.PlaceOf(b.Content.End, position.ColumnGraphemes)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d:%d\t%d:%d\n",
			b.Type, b.Tag, b.Language(), b.Content,
			start.Line+1, start.Character+1, end.Line+1, end.Character+1)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(d.Diagnostics) == 0 {
		return nil
	}
	out, err := diagnostic.NewTextFormatter(!me.noColor).Format(doc.URI, doc.Text, d.Diagnostics)
	if err != nil {
		return err
	}
	_, err = me.out.Write(out)
	return err
}
