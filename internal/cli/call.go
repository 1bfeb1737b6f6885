package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/graph-batch-client/pkg/batch"
	"github.com/Sternrassler/graph-batch-client/pkg/client"
	"github.com/Sternrassler/graph-batch-client/pkg/config"
	"github.com/Sternrassler/graph-batch-client/pkg/request"
)

// buildClient assembles the batch client from the config file, GRAPH_*
// environment variables and command flags, flags winning.
func buildClient(cmd *cobra.Command) (*client.Client, error) {
	configPath, _ := cmd.Flags().GetString("config")
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("app-token"); v != "" {
		settings.AppToken = v
	}
	if v, _ := cmd.Flags().GetString("base-url"); v != "" {
		settings.BaseURL = v
	}

	return client.New(client.Config{Settings: settings})
}

// issuer returns the client bound to the --token flag when one is set.
func issuer(cmd *cobra.Command, c *client.Client) *client.Client {
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		return c.WithToken(token)
	}
	return c
}

// parseParams turns repeated key=value flags into request parameters.
func parseParams(pairs []string) (request.Params, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := request.Params{}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("parameter %q is not in key=value form", pair)
		}
		params[key] = value
	}
	return params, nil
}

// printCall surfaces the call's stored error and renders the merged
// response fields as indented JSON.
func printCall(cmd *cobra.Command, call *batch.Call) error {
	ctx := cmd.Context()
	if err := call.Err(ctx); err != nil {
		return err
	}
	resp, err := call.Response(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, resp.Fields)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
