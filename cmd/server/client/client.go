// Package client provides commands that call a running compendium server
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	v1alpha1 "github.com/KirkDiggler/rpg-compendium/internal/handlers/compendium/v1alpha1"
)

var (
	// Connection flags
	serverAddr string
	timeout    time.Duration
	callerID   string
	asGM       bool
	gmToken    string
)

// ClientCmd is the root command for all client commands
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Call a running compendium server",
	Long:  `Client commands send real gRPC requests to a compendium server.`,
}

func init() {
	ClientCmd.PersistentFlags().StringVar(&serverAddr, "server", "localhost:50051", "gRPC server address")
	ClientCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	ClientCmd.PersistentFlags().StringVar(&callerID, "caller", "cli", "caller id sent with requests")
	ClientCmd.PersistentFlags().BoolVar(&asGM, "gm", false, "call with the gm role")
	ClientCmd.PersistentFlags().StringVar(&gmToken, "gm-token", "", "token sent with --gm when the server requires one")

	ClientCmd.AddCommand(resolveItemCmd)
	ClientCmd.AddCommand(resolveGroupsCmd)
	ClientCmd.AddCommand(rebuildCacheCmd)
	ClientCmd.AddCommand(generateCharacterCmd)
}

// createClient dials the server. The returned func closes the connection.
func createClient() (*v1alpha1.Client, func(), error) {
	conn, err := grpc.NewClient(serverAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	cleanup := func() {
		_ = conn.Close() // nolint:errcheck // safe to ignore in cleanup
	}
	return v1alpha1.NewClient(conn), cleanup, nil
}

// callContext carries the caller identity and the request timeout
func callContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = metadata.AppendToOutgoingContext(ctx, v1alpha1.CallerIDHeader, callerID)
	if asGM {
		ctx = metadata.AppendToOutgoingContext(ctx, v1alpha1.CallerRoleHeader, "gm")
		if gmToken != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, v1alpha1.CallerTokenHeader, gmToken)
		}
	}
	return ctx, cancel
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
