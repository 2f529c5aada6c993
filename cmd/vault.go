package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sheetloom-cli/internal/metrics"
	"github.com/KaramelBytes/sheetloom-cli/internal/sheet"
	"github.com/KaramelBytes/sheetloom-cli/internal/store"
	"github.com/KaramelBytes/sheetloom-cli/internal/vault"
)

var (
	vaultPassword string
	relockOld     string
	relockNew     string
)

func requirePassword(pw, flag string) error {
	if pw == "" {
		return fmt.Errorf("--%s is required", flag)
	}
	return nil
}

var lockCmd = &cobra.Command{
	Use:   "lock <id>",
	Short: "Encrypt a sheet under a password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePassword(vaultPassword, "password"); err != nil {
			return err
		}
		return withVault(cmd, args[0], func(db *store.DB, codec *vault.Codec, s sheet.Sheet) error {
			if s.Encrypted {
				fmt.Fprintln(cmd.OutOrStdout(), "Sheet is already locked")
				return nil
			}
			locked, err := codec.Lock(cmd.Context(), s, vaultPassword)
			if err != nil {
				return err
			}
			if !locked.Encrypted {
				fmt.Fprintln(cmd.OutOrStdout(), "Sheet is empty; nothing to lock")
				return nil
			}
			if _, err := db.Put(cmd.Context(), locked); err != nil {
				_ = codec.Release(cmd.Context(), locked)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Sheet locked: %d\n", s.ID)
			return nil
		})
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <id>",
	Short: "Decrypt a sheet and print its plaintext (the stored sheet stays locked)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePassword(vaultPassword, "password"); err != nil {
			return err
		}
		return withVault(cmd, args[0], func(_ *store.DB, codec *vault.Codec, s sheet.Sheet) error {
			plain, err := codec.Unlock(cmd.Context(), s, vaultPassword)
			if err != nil {
				return unlockError(err, nil)
			}
			fmt.Fprintln(cmd.OutOrStdout(), plain)
			return nil
		})
	},
}

var relockCmd = &cobra.Command{
	Use:   "relock <id>",
	Short: "Re-encrypt a sheet under a new password (locks an unlocked sheet)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePassword(relockNew, "new"); err != nil {
			return err
		}
		return withVault(cmd, args[0], func(db *store.DB, codec *vault.Codec, s sheet.Sheet) error {
			if s.Encrypted {
				if err := requirePassword(relockOld, "old"); err != nil {
					return err
				}
			}
			relocked, orphan, err := codec.Relock(cmd.Context(), s, relockOld, relockNew)
			if err != nil {
				return unlockError(err, nil)
			}
			if !relocked.Encrypted {
				fmt.Fprintln(cmd.OutOrStdout(), "Sheet is empty; nothing to lock")
				return nil
			}
			if _, err := db.Put(cmd.Context(), relocked); err != nil {
				_ = codec.Release(cmd.Context(), relocked)
				return err
			}
			if orphan != "" {
				if err := codec.Purge(cmd.Context(), orphan); err != nil {
					return err
				}
			}
			if s.Encrypted {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Sheet re-locked: %d\n", s.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Sheet locked: %d\n", s.ID)
			}
			return nil
		})
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <id>",
	Short: "Turn encryption off and store the sheet as plain CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePassword(vaultPassword, "password"); err != nil {
			return err
		}
		return withVault(cmd, args[0], func(db *store.DB, codec *vault.Codec, s sheet.Sheet) error {
			if !s.Encrypted {
				fmt.Fprintln(cmd.OutOrStdout(), "Sheet is not locked")
				return nil
			}
			plain, orphan, err := codec.Disable(cmd.Context(), s, vaultPassword)
			if err != nil {
				return unlockError(err, nil)
			}
			if _, err := db.Put(cmd.Context(), plain); err != nil {
				return err
			}
			if err := codec.Purge(cmd.Context(), orphan); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Sheet decrypted: %d\n", s.ID)
			return nil
		})
	},
}

func withVault(cmd *cobra.Command, idArg string, fn func(*store.DB, *vault.Codec, sheet.Sheet) error) error {
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
		return fn(db, vault.New(db.Secrets()), s)
	})
}

// unlockError counts the failure and adds a hint for the common cases.
func unlockError(err error, m *metrics.Collector) error {
	m.ObserveUnlockFailure()
	switch {
	case errors.Is(err, vault.ErrWrongPasswordOrCorrupt):
		return fmt.Errorf("could not decrypt sheet (check the password): %w", err)
	case errors.Is(err, vault.ErrVaultRecordMissing):
		return fmt.Errorf("vault record for this sheet is gone; the content cannot be recovered: %w", err)
	}
	return err
}

func init() {
	rootCmd.AddCommand(lockCmd, unlockCmd, relockCmd, decryptCmd)
	for _, c := range []*cobra.Command{lockCmd, unlockCmd, decryptCmd} {
		c.Flags().StringVar(&vaultPassword, "password", "", "sheet password")
	}
	relockCmd.Flags().StringVar(&relockOld, "old", "", "current password")
	relockCmd.Flags().StringVar(&relockNew, "new", "", "new password")
}
