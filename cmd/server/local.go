package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
	v1alpha1 "github.com/KirkDiggler/rpg-compendium/internal/handlers/compendium/v1alpha1"
	compendiumsvc "github.com/KirkDiggler/rpg-compendium/internal/services/compendium"
)

var (
	requestFile     string
	collectionNames []string
)

var rebuildCacheCmd = &cobra.Command{
	Use:   "rebuild-cache",
	Short: "Rebuild and persist the compendium snapshot",
	Long:  `Fetch the host collections and save a fresh snapshot. The local operator acts as GM.`,
	RunE:  runRebuildCache,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve request groups against the persisted snapshot",
	Long:  `Read a ResolveRequestGroups JSON request from --file (or stdin) and print the result.`,
	RunE:  runResolve,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a character and resolve its kit",
	Long:  `Read a GenerateCharacter JSON request from --file (or stdin) and print the character.`,
	RunE:  runGenerate,
}

func init() {
	rebuildCacheCmd.Flags().StringSliceVar(&collectionNames, "collections", nil, "collections to cache (default: all item collections)")
	resolveCmd.Flags().StringVarP(&requestFile, "file", "f", "", "request JSON file; stdin when empty")
	generateCmd.Flags().StringVarP(&requestFile, "file", "f", "", "request JSON file; stdin when empty")
}

// withApp wires the app, optionally installs the persisted snapshot and runs fn
func withApp(cmd *cobra.Command, load bool, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if load {
		if err := installSnapshot(ctx, a.builder); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}

type snapshotLoader interface {
	LoadSnapshot(ctx context.Context) (*compendium.Snapshot, error)
}

// installSnapshot loads the persisted snapshot. A corrupt blob is logged and
// the command continues against an empty cache.
func installSnapshot(ctx context.Context, loader snapshotLoader) error {
	if _, err := loader.LoadSnapshot(ctx); err != nil {
		if errors.IsDataLoss(err) {
			slog.Error("Persisted snapshot is unreadable, continuing with an empty cache", "error", err)
			return nil
		}
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	return nil
}

func runRebuildCache(cmd *cobra.Command, args []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		out, err := a.builder.RebuildCache(ctx, &compendiumsvc.RebuildCacheInput{
			Caller:          compendiumsvc.Caller{ID: "cli", Role: compendiumsvc.RoleGM},
			CollectionNames: collectionNames,
			Progress: func(done, total int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "cached %d/%d collections\n", done, total)
			},
		})
		if err != nil {
			return err
		}
		for _, e := range out.Errors {
			slog.Warn("Collection failed", "collection", e.Collection, "error", e.Message)
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"buildId":      out.BuildID,
			"cacheVersion": out.Snapshot.CacheVersion,
			"packs":        len(out.Snapshot.Packs),
			"documents":    out.Snapshot.DocumentCount(),
			"errors":       out.Errors,
		})
	})
}

func runResolve(cmd *cobra.Command, args []string) error {
	var req v1alpha1.ResolveRequestGroupsRequest
	if err := readRequest(cmd, &req); err != nil {
		return err
	}
	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		resp, err := a.handler.ResolveRequestGroups(ctx, &req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	var req v1alpha1.GenerateCharacterRequest
	if err := readRequest(cmd, &req); err != nil {
		return err
	}
	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		resp, err := a.handler.GenerateCharacter(ctx, &req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	})
}

func readRequest(cmd *cobra.Command, v any) error {
	var src io.Reader = cmd.InOrStdin()
	if requestFile != "" {
		f, err := os.Open(requestFile)
		if err != nil {
			return fmt.Errorf("failed to open request: %w", err)
		}
		defer f.Close()
		src = f
	}
	if err := json.NewDecoder(src).Decode(v); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
