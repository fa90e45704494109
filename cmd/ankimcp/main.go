// cmd/ankimcp is the command-line companion to the MCP server: it analyses
// decks, suggests field mappings, adds cards and manages card profiles.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scrypster/ankimcp/internal/app"
	"github.com/scrypster/ankimcp/internal/cards"
	"github.com/scrypster/ankimcp/internal/importer"
	"github.com/scrypster/ankimcp/internal/semantic"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("ankimcp: ")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "ankimcp",
		Short:        "Add Anki cards with portable semantic labels",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(profilesCmd())
	rootCmd.AddCommand(defaultsCmd())
	return rootCmd
}

// withEnv wires the application for the duration of one command.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, env *app.Env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := app.Setup(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the AnkiConnect connection and show configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, env *app.Env) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "AnkiConnect:    %s\n", env.Config.Anki.URL)
				if v, err := env.Anki.Version(ctx); err != nil {
					fmt.Fprintf(out, "  unreachable: %v\n", err)
				} else {
					fmt.Fprintf(out, "  version %d\n", v)
				}
				fmt.Fprintf(out, "Storage:        %s\n", env.Config.Storage.StorageEngine)
				fmt.Fprintf(out, "Default deck:   %s\n", orNone(env.Config.Defaults.Deck))
				fmt.Fprintf(out, "Default type:   %s\n", orNone(env.Config.Defaults.NoteType))
				fmt.Fprintf(out, "Circuit:        %s\n", env.Anki.BreakerState())
				return nil
			})
		},
	}
}

func analyzeCmd() *cobra.Command {
	var sampleSize int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <deck>",
		Short: "Sample a deck and report what each field holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sampleSize < 0 {
				return fmt.Errorf("--sample must be positive, got %d", sampleSize)
			}
			return withEnv(cmd, func(ctx context.Context, env *app.Env) error {
				a, err := env.Cards.AnalyzeDeck(ctx, args[0], sampleSize)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), a.Result)
				}
				fmt.Fprint(cmd.OutOrStdout(), a.Report)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&sampleSize, "sample", "n", 0, "notes to sample (default from ANKIMCP_SAMPLE_SIZE)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the structured result")
	return cmd
}

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <note-type>",
		Short: "Suggest a semantic mapping for a note type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, env *app.Env) error {
				s, err := env.Cards.Suggest(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Note type: %s\n", s.NoteType)
				fmt.Fprintf(out, "Fields: %s\n\n", strings.Join(s.Fields, ", "))
				fmt.Fprintln(out, "Mapping:")
				for _, d := range s.Details {
					fmt.Fprintf(out, "- %s → %s (%.1f)\n", d.Label, d.Field, d.Confidence)
				}
				return nil
			})
		},
	}
}

func addCmd() *cobra.Command {
	var (
		profile, deck string
		fields        []string
		tags          []string
		allowDup      bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a card from label=text pairs",
		Example: `  ankimcp add --profile jp -f primary=猫 -f reading=ねこ -f secondary=cat
  ankimcp add -f primary=hello -f secondary=world --tag greetings`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := parseContent(fields)
			if err != nil {
				return err
			}
			return withEnv(cmd, func(ctx context.Context, env *app.Env) error {
				res, err := env.Cards.AddCard(ctx, cards.AddCardRequest{
					Profile:        profile,
					Deck:           deck,
					Content:        content,
					Tags:           tags,
					AllowDuplicate: allowDup,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added note %d to %s (%s)\n", res.NoteID, res.Deck, res.NoteType)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "saved profile to use")
	cmd.Flags().StringVarP(&deck, "deck", "d", "", "override the target deck")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "label=text (repeatable, order kept)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "extra tags")
	cmd.Flags().BoolVar(&allowDup, "allow-duplicate", false, "skip the duplicate check")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

// parseContent turns label=text flags into ordered labelled content.
func parseContent(pairs []string) ([]semantic.LabelledText, error) {
	content := make([]semantic.LabelledText, 0, len(pairs))
	for _, pair := range pairs {
		label, text, ok := strings.Cut(pair, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			return nil, fmt.Errorf("invalid field %q: expected label=text", pair)
		}
		content = append(content, semantic.LabelledText{Label: label, Text: text})
	}
	return content, nil
}

func profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage saved card profiles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, env *app.Env) error {
				profiles, err := env.Cards.Profiles(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(profiles) == 0 {
					fmt.Fprintln(out, "No profiles saved")
					return nil
				}
				for _, p := range profiles {
					fmt.Fprintf(out, "%s: %s → %s\n", p.Name, p.NoteType, orNone(p.Deck))
					labels := make([]string, 0, len(p.Mapping))
					for l := range p.Mapping {
						labels = append(labels, l)
					}
					sort.Strings(labels)
					for _, l := range labels {
						fmt.Fprintf(out, "    %s → %s\n", l, p.Mapping[l])
					}
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Import profiles from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pf, err := importer.LoadFile(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, func(ctx context.Context, env *app.Env) error {
				res, err := importer.ImportProfiles(ctx, env.Store, env.Anki, pf)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d profiles\n", len(res.Imported))
				for _, e := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "  skipped %s\n", e)
				}
				return nil
			})
		},
	})

	var outPath string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export profiles as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, env *app.Env) error {
				pf, err := importer.ExportProfiles(ctx, env.Store)
				if err != nil {
					return err
				}
				if outPath != "" {
					return importer.WriteFile(pf, outPath)
				}
				data, err := importer.Marshal(pf)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
	exportCmd.Flags().StringVarP(&outPath, "output", "o", "", "write to file instead of stdout")
	cmd.AddCommand(exportCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, env *app.Env) error {
				return env.Cards.DeleteProfile(ctx, args[0])
			})
		},
	})
	return cmd
}

func defaultsCmd() *cobra.Command {
	var deck, noteType string

	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Show or persist the default deck and note type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, env *app.Env) error {
				changed := false
				if cmd.Flags().Changed("deck") {
					env.Config.Defaults.Deck = deck
					changed = true
				}
				if cmd.Flags().Changed("note-type") {
					env.Config.Defaults.NoteType = noteType
					changed = true
				}
				if changed {
					if err := env.Config.SaveConfig(ctx, env.Store); err != nil {
						return err
					}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Default deck:      %s\n", orNone(env.Config.Defaults.Deck))
				fmt.Fprintf(out, "Default note type: %s\n", orNone(env.Config.Defaults.NoteType))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&deck, "deck", "", "set the default deck")
	cmd.Flags().StringVar(&noteType, "note-type", "", "set the default note type")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
