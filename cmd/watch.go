package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sheetloom-cli/internal/sheet"
	"github.com/KaramelBytes/sheetloom-cli/internal/store"
)

var watchTag string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the sheet list now and every time it changes (Ctrl+C to stop)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		w := cmd.OutOrStdout()
		return withStore(ctx, func(db *store.DB) error {
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", db.Path())
			return db.Watch(ctx, func(sheets []sheet.Sheet) {
				fmt.Fprintf(w, "── %s (%d sheets)\n", time.Now().Format("15:04:05"), len(sheets))
				printSheetList(w, sheets, watchTag)
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchTag, "tag", "", "only show sheets carrying this tag")
}
