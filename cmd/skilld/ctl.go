package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"skilld/pkg/types"
)

// client talks to a running skilld over its admin API.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: timeout}}
}

func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var e types.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func buildCtlCmd() *cobra.Command {
	server := os.Getenv("SKILLD_URL")
	if server == "" {
		server = "http://127.0.0.1:8088"
	}
	timeout := 15 * time.Second
	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Control a running skilld",
	}
	cmd.PersistentFlags().StringVar(&server, "server", server, "skilld admin URL (defaults SKILLD_URL)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "Request timeout")
	cl := func() *client { return newClient(server, timeout) }

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List skills and their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp types.SkillsResponse
			if err := cl().do(cmd.Context(), http.MethodGet, "/skills", nil, &resp); err != nil {
				return err
			}
			return printSkills(cmd.OutOrStdout(), resp.Skills)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the full status document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp types.StatusResponse
			if err := cl().do(cmd.Context(), http.MethodGet, "/status", nil, &resp); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	})
	for _, a := range []struct{ use, short string }{
		{"activate", "Activate a skill (\"all\" for every skill)"},
		{"deactivate", "Deactivate a skill"},
		{"keep", "Deactivate every skill except one"},
	} {
		action := a.use
		cmd.AddCommand(&cobra.Command{
			Use:   action + " <skill>",
			Short: a.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var resp types.ActionResponse
				path := "/skills/" + url.PathEscape(args[0]) + "/" + action
				if err := cl().do(cmd.Context(), http.MethodPost, path, nil, &resp); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d affected\n", resp.Action, resp.Skill, resp.Affected)
				return nil
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "update",
		Short: "Run an update pass on the next scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl().do(cmd.Context(), http.MethodPost, "/update", nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "update scheduled")
			return nil
		},
	})

	var lang string
	converse := &cobra.Command{
		Use:   "converse <skill> <utterance>...",
		Short: "Offer utterances to a skill",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.ConverseRequest{Utterances: args[1:], Lang: lang}
			var resp types.ConverseResponse
			path := "/skills/" + url.PathEscape(args[0]) + "/converse"
			if err := cl().do(cmd.Context(), http.MethodPost, path, req, &resp); err != nil {
				return err
			}
			if resp.Result {
				fmt.Fprintf(cmd.OutOrStdout(), "%s handled the utterance\n", resp.SkillID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s declined the utterance\n", resp.SkillID)
			}
			return nil
		},
	}
	converse.Flags().StringVar(&lang, "lang", "en-us", "Language code")
	cmd.AddCommand(converse)
	return cmd
}

func printSkills(w io.Writer, skills []types.SkillStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tACTIVE\tNAME\tERROR")
	for _, s := range skills {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", s.ID, s.State, s.Active, s.Name, s.LastError)
	}
	return tw.Flush()
}
