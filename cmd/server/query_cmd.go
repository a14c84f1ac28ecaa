package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"finance-backend/internal/engine"
	"finance-backend/internal/query"
)

func newQueryCmd(c *cli) *cobra.Command {
	var (
		user  string
		admin bool
		seed  string
	)

	cmd := &cobra.Command{
		Use:   "query <resource> [request.json|-]",
		Short: "Run one list request against the database and print the page",
		Example: `  # First page of transactions for a user, default ordering
  finance query transactions --user 0f8fad5b-d9cb-469f-a165-70867728950e

  # Request body from stdin
  echo '{"orders":[{"field":"amount","direction":"desc"}]}' | finance query transactions - --admin`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" && !admin {
				return fmt.Errorf("--user or --admin is required")
			}

			var req query.Request
			if len(args) == 2 {
				if err := readRequest(args[1], cmd.InOrStdin(), &req); err != nil {
					return err
				}
			}

			s, err := c.openStore(cmd.Context(), seed)
			if err != nil {
				return err
			}
			defer s.Close()

			res := c.registry(s).Get(args[0])
			if res == nil {
				return engine.UnknownEntityError(args[0])
			}

			uc := &engine.UserContext{ID: user}
			if admin {
				uc.Roles = []string{"admin"}
			}
			page, err := res.List(cmd.Context(), uc, req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(page)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "subject to scope the listing to")
	cmd.Flags().BoolVar(&admin, "admin", false, "list every owner's rows")
	cmd.Flags().StringVar(&seed, "seed", "", "owner UUID to seed demo data for first")
	return cmd
}

func readRequest(path string, stdin io.Reader, req *query.Request) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	if err := json.Unmarshal(data, req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
