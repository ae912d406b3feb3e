package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	v1alpha1 "github.com/KirkDiggler/rpg-compendium/internal/handlers/compendium/v1alpha1"
)

var (
	itemName     string
	itemLookup   string
	allowedTypes []string
	tier         string
	allowMagic   bool
	requestFile  string
	collections  []string
)

var resolveItemCmd = &cobra.Command{
	Use:   "resolve-item",
	Short: "Resolve a single reference",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := createClient()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := callContext()
		defer cancel()

		resp, err := client.ResolveItem(ctx, &v1alpha1.ResolveItemRequest{
			Reference: compendium.ItemReference{Name: itemName, Lookup: itemLookup},
			Group:     v1alpha1.GroupSpec{Key: "cli", AllowedTypes: allowedTypes},
			Budget:    v1alpha1.BudgetSpec{Tier: tier, AllowMagic: allowMagic},
		})
		if err != nil {
			return fmt.Errorf("failed to resolve item: %w", err)
		}
		return printJSON(resp)
	},
}

var resolveGroupsCmd = &cobra.Command{
	Use:   "resolve-groups",
	Short: "Resolve a batch read from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req v1alpha1.ResolveRequestGroupsRequest
		if err := readRequest(&req); err != nil {
			return err
		}

		client, cleanup, err := createClient()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := callContext()
		defer cancel()

		resp, err := client.ResolveRequestGroups(ctx, &req)
		if err != nil {
			return fmt.Errorf("failed to resolve groups: %w", err)
		}
		return printJSON(resp)
	},
}

var rebuildCacheCmd = &cobra.Command{
	Use:   "rebuild-cache",
	Short: "Ask the server to rebuild its snapshot (requires --gm)",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := createClient()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := callContext()
		defer cancel()

		resp, err := client.RebuildCache(ctx, &v1alpha1.RebuildCacheRequest{CollectionNames: collections})
		if err != nil {
			return fmt.Errorf("failed to rebuild cache: %w", err)
		}
		return printJSON(resp)
	},
}

var generateCharacterCmd = &cobra.Command{
	Use:   "generate-character",
	Short: "Generate a character from a JSON request file",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req v1alpha1.GenerateCharacterRequest
		if err := readRequest(&req); err != nil {
			return err
		}

		client, cleanup, err := createClient()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := callContext()
		defer cancel()

		resp, err := client.GenerateCharacter(ctx, &req)
		if err != nil {
			return fmt.Errorf("failed to generate character: %w", err)
		}
		return printJSON(resp)
	},
}

func init() {
	resolveItemCmd.Flags().StringVar(&itemName, "name", "", "display name of the reference")
	resolveItemCmd.Flags().StringVar(&itemLookup, "lookup", "", "canonical lookup name")
	resolveItemCmd.Flags().StringSliceVar(&allowedTypes, "types", []string{"weapon", "equipment"}, "allowed document types")
	resolveItemCmd.Flags().StringVar(&tier, "tier", "normal", "budget tier")
	resolveItemCmd.Flags().BoolVar(&allowMagic, "magic", false, "allow magic items")

	resolveGroupsCmd.Flags().StringVarP(&requestFile, "file", "f", "", "request JSON file")
	generateCharacterCmd.Flags().StringVarP(&requestFile, "file", "f", "", "request JSON file")
	_ = resolveGroupsCmd.MarkFlagRequired("file")
	_ = generateCharacterCmd.MarkFlagRequired("file")

	rebuildCacheCmd.Flags().StringSliceVar(&collections, "collections", nil, "collections to cache")
}

func readRequest(v any) error {
	data, err := os.ReadFile(requestFile)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}
	return nil
}
