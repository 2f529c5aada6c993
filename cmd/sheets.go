package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sheetloom-cli/internal/analysis"
	"github.com/KaramelBytes/sheetloom-cli/internal/parser"
	"github.com/KaramelBytes/sheetloom-cli/internal/sheet"
	"github.com/KaramelBytes/sheetloom-cli/internal/store"
	"github.com/KaramelBytes/sheetloom-cli/internal/utils"
	"github.com/KaramelBytes/sheetloom-cli/internal/vault"
)

var (
	listTag      string
	showPassword string
	showProfile  bool
	showJSON     bool
	editFile     string
	editStdin    bool
	importName   string
	delPassword  string
	delForce     bool
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create an empty sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(db *store.DB) error {
			id, err := db.Put(cmd.Context(), sheet.New(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Sheet created: %d (%s)\n", id, args[0])
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sheets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(db *store.DB) error {
			sheets, err := db.List(cmd.Context())
			if err != nil {
				return err
			}
			printSheetList(cmd.OutOrStdout(), sheets, listTag)
			return nil
		})
	},
}

func printSheetList(w io.Writer, sheets []sheet.Sheet, tag string) {
	found := false
	for _, s := range sheets {
		if tag != "" && !s.HasTag(tag) {
			continue
		}
		found = true
		lock := ""
		if s.Encrypted {
			lock = " [locked]"
		}
		tags := ""
		if len(s.Tags) > 0 {
			tags = " #" + strings.Join(s.Tags, " #")
		}
		fmt.Fprintf(w, "- %d: %s%s%s\n", s.ID, s.Name, lock, tags)
	}
	if !found {
		fmt.Fprintln(w, "(no sheets)")
	}
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a sheet's content, or its column profile with --profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		return withStore(ctx, func(db *store.DB) error {
			s, err := db.Get(ctx, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.Encrypted && showPassword == "" {
				if showJSON {
					return printJSON(out, s)
				}
				fmt.Fprintf(out, "%s (id %d) is locked; pass --password to view it\n", s.Name, s.ID)
				return nil
			}
			content, err := vault.New(db.Secrets()).Unlock(ctx, s, showPassword)
			if err != nil {
				return unlockError(err, nil)
			}
			if showProfile {
				tbl, err := analysis.Parse(content)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, tbl.Markdown())
				return nil
			}
			if showJSON {
				return printJSON(out, s.WithPlain(content))
			}
			fmt.Fprintln(out, content)
			return nil
		})
	},
}

func printJSON(w io.Writer, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	return nil
}

var renameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a sheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateSheet(cmd, args[0], func(s sheet.Sheet) (sheet.Sheet, error) {
			return s.WithName(args[1]), nil
		}, "✓ Sheet renamed")
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Replace a sheet's CSV content from a file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (editFile == "") == !editStdin {
			return fmt.Errorf("specify exactly one of --file or --stdin")
		}
		content, err := readContent(cmd.InOrStdin(), editFile)
		if err != nil {
			return err
		}
		return updateSheet(cmd, args[0], func(s sheet.Sheet) (sheet.Sheet, error) {
			return s.WithContent(content)
		}, "✓ Sheet updated")
	},
}

// readContent returns CSV text from a file (converted by extension) or stdin.
func readContent(stdin io.Reader, path string) (string, error) {
	if path != "" {
		return parser.ParseFile(path)
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return string(b), nil
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create a sheet from a CSV, TSV, XLSX or Markdown table file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]
		content, err := readContent(nil, file)
		if err != nil {
			return err
		}
		name := importName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}
		s, err := sheet.New(name).WithContent(content)
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(db *store.DB) error {
			id, err := db.Put(cmd.Context(), s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Sheet imported: %d (%s)\n", id, name)
			return nil
		})
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Add or remove sheet tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <id> <tag>",
	Short: "Append a tag",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateSheet(cmd, args[0], func(s sheet.Sheet) (sheet.Sheet, error) {
			return s.WithTag(args[1]), nil
		}, "✓ Tag added")
	},
}

var tagRmCmd = &cobra.Command{
	Use:   "rm <id> <tag>",
	Short: "Remove the first occurrence of a tag",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateSheet(cmd, args[0], func(s sheet.Sheet) (sheet.Sheet, error) {
			if !s.HasTag(args[1]) {
				return s, fmt.Errorf("sheet has no tag %q", args[1])
			}
			return s.WithoutTag(args[1]), nil
		}, "✓ Tag removed")
	},
}

// updateSheet loads, transforms and saves one sheet.
func updateSheet(cmd *cobra.Command, idArg string, fn func(sheet.Sheet) (sheet.Sheet, error), done string) error {
	id, err := parseID(idArg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return withStore(ctx, func(db *store.DB) error {
		s, err := db.Get(ctx, id)
		if err != nil {
			return err
		}
		s, err = fn(s)
		if err != nil {
			return err
		}
		if _, err := db.Put(ctx, s); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), done)
		return nil
	})
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a sheet and its vault record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		return withStore(ctx, func(db *store.DB) error {
			return deleteSheet(ctx, db, id, delPassword, delForce, cmd.OutOrStdout())
		})
	},
}

func deleteSheet(ctx context.Context, db *store.DB, id int64, password string, force bool, out io.Writer) error {
	s, err := db.Get(ctx, id)
	if err != nil {
		return err
	}
	codec := vault.New(db.Secrets())
	if s.Encrypted && !force {
		if password == "" {
			return errors.New("sheet is locked; pass --password to confirm or --force")
		}
		if _, err := codec.Unlock(ctx, s, password); err != nil {
			return unlockError(err, nil)
		}
	}
	if err := db.Delete(ctx, id); err != nil {
		return err
	}
	if err := codec.Release(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Sheet deleted: %d\n", id)
	return nil
}

func init() {
	rootCmd.AddCommand(newCmd, listCmd, showCmd, renameCmd, editCmd, importCmd, tagCmd, deleteCmd)
	tagCmd.AddCommand(tagAddCmd, tagRmCmd)

	listCmd.Flags().StringVar(&listTag, "tag", "", "only list sheets carrying this tag")
	showCmd.Flags().StringVar(&showPassword, "password", "", "password for a locked sheet")
	showCmd.Flags().BoolVar(&showProfile, "profile", false, "print the inferred column profile instead of raw CSV")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the sheet as JSON")
	editCmd.Flags().StringVar(&editFile, "file", "", "read new content from this file")
	editCmd.Flags().BoolVar(&editStdin, "stdin", false, "read new content from stdin")
	importCmd.Flags().StringVar(&importName, "name", "", "sheet name (default: file name without extension)")
	deleteCmd.Flags().StringVar(&delPassword, "password", "", "password confirming deletion of a locked sheet")
	deleteCmd.Flags().BoolVar(&delForce, "force", false, "delete a locked sheet without its password")
}
