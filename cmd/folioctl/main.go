// folioctl is the admin command line for a Folio server. It drives the REST
// API through pkg/client; nothing here talks to the store directly.
//
//	folioctl login admin --password secret
//	FOLIO_TOKEN=... folioctl list projects --page 2 --limit 10
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/folio-dev/folio/pkg/client"
)

var (
	serverURL string
	token     string
)

func main() {
	root := &cobra.Command{
		Use:   "folioctl",
		Short: "Admin CLI for a Folio portfolio server",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("FOLIO_SERVER", "http://localhost:8080"), "server base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("FOLIO_TOKEN"), "bearer token from a previous login")

	root.AddCommand(
		loginCmd(),
		meCmd(),
		listCmd(),
		getCmd(),
		createCmd(),
		updateCmd(),
		deleteCmd(),
		purgeCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	c, err := client.New(serverURL)
	if err != nil {
		return nil, err
	}
	if token != "" {
		c.SetBearerToken(token)
	}
	return c, nil
}

func loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and print a bearer token for later invocations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("FOLIO_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("provide --password or set FOLIO_PASSWORD")
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			user, err := c.Login(context.Background(), args[0], password)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Username, user.Role)
			fmt.Fprintf(cmd.OutOrStdout(), "export FOLIO_TOKEN=%s\n", c.SessionToken())
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated account",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			user, err := c.Me(context.Background())
			if err != nil {
				return err
			}
			return printJSON(cmd, user)
		},
	}
}

func listCmd() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List records of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			res := c.Resource(args[0])

			if page > 0 {
				out, err := res.ListPage(context.Background(), page, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			}

			records, err := res.List(context.Background())
			if err != nil {
				return err
			}
			return printJSON(cmd, records)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "page number (server-side pagination)")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Fetch one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			rec, err := c.Resource(args[0]).Get(context.Background(), args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
}

func createCmd() *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "create <resource>",
		Short: "Create a record from a JSON body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := decodeBody(body)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			rec, err := c.Resource(args[0]).Create(context.Background(), fields)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
	cmd.Flags().StringVar(&body, "json", "", "record fields as a JSON object")
	cmd.MarkFlagRequired("json")
	return cmd
}

func updateCmd() *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "update <resource> <id>",
		Short: "Update a record from a JSON body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := decodeBody(body)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			rec, err := c.Resource(args[0]).Update(context.Background(), args[1], fields)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
	cmd.Flags().StringVar(&body, "json", "", "fields to update as a JSON object")
	cmd.MarkFlagRequired("json")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			rec, err := c.Resource(args[0]).Delete(context.Background(), args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
}

func purgeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge <resource>",
		Short: "Delete every record of a resource (development servers only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to purge %s without --yes", args[0])
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			msg, err := c.Resource(args[0]).DeleteAll(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the purge")
	return cmd
}

func decodeBody(body string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, fmt.Errorf("invalid --json body: %w", err)
	}
	return fields, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
