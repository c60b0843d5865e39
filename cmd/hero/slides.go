package main

import (
	"fmt"
	"io"

	"github.com/vsource/hero/internal/content"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var slidesYAML bool

var slidesCmd = &cobra.Command{
	Use:   "slides [file]",
	Short: "Validate and print a slide deck",
	Long: `Loads a slide deck, validates it the way the service does on startup and
reload, and prints it. Without a file the configured slides-path is used,
falling back to the built-in deck.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := loadConfig(configPath, nil)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			path = cfg.SlidesPath
		}

		deck, err := content.Load(path)
		if err != nil {
			return err
		}
		if slidesYAML {
			data, err := deck.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		printDeck(cmd.OutOrStdout(), path, deck)
		return nil
	},
}

func init() {
	slidesCmd.Flags().BoolVar(&slidesYAML, "yaml", false, "print the normalized deck as YAML")
}

func printDeck(w io.Writer, path string, deck content.Deck) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true)
	bold := lipgloss.NewStyle().Bold(true)

	source := path
	if source == "" {
		source = "built-in"
	}
	fmt.Fprintf(w, "%s %s\n\n", bold.Render(fmt.Sprintf("%d slides", len(deck.Slides))), dim.Render("("+source+")"))

	for i, s := range deck.Slides {
		var title string
		for _, span := range s.Title {
			if span.Accent {
				title += red.Render(span.Text)
			} else {
				title += bold.Render(span.Text)
			}
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, title)
		if s.Subtitle != "" {
			fmt.Fprintf(w, "     %s\n", s.Subtitle)
		}
		fmt.Fprintf(w, "     %s %s\n", dim.Render("image"), s.Image)
		fmt.Fprintf(w, "     %s %s\n", dim.Render("alt  "), s.Alt)
		fmt.Fprintf(w, "     %s %s → %s\n\n", dim.Render("cta  "), s.CTA.Label, s.CTA.Target)
	}
}
