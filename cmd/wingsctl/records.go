package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/compat"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// parseID reads an id argument. Integers become Int, "null" is the null id
// and a JSON string literal forces a string id.
func parseID(arg string) (record.Value, error) {
	switch {
	case arg == "null":
		return record.Null{}, nil
	case strings.HasPrefix(arg, `"`):
		s, err := strconv.Unquote(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid id %s: %w", arg, err)
		}
		return record.String(s), nil
	}
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return record.Int(n), nil
	}
	return record.String(arg), nil
}

func parseQuery(s string) (*query.Params, error) {
	if s == "" {
		return nil, nil
	}
	p, err := query.ParseJSON([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	return p, nil
}

func parseRecord(data []byte) (*record.Record, error) {
	r := record.New()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	return r, nil
}

func parseRecords(data []byte) ([]*record.Record, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var rs []*record.Record
		if err := json.Unmarshal(data, &rs); err != nil {
			return nil, true, fmt.Errorf("invalid data: %w", err)
		}
		return rs, true, nil
	}
	r, err := parseRecord(data)
	if err != nil {
		return nil, false, err
	}
	return []*record.Record{r}, false, nil
}

func newFindCmd(a *app) *cobra.Command {
	var q string
	var paginate bool

	cmd := &cobra.Command{
		Use:   "find [query]",
		Short: "List records matching a query",
		Long: `List records matching a query, e.g.

  wingsctl find '{"age":{"$gte":30},"$sort":{"name":1},"$limit":10}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q = args[0]
			}
			p, err := parseQuery(q)
			if err != nil {
				return err
			}
			var page *bool
			if cmd.Flags().Changed("paginate") {
				page = &paginate
			}

			svc, closeFn, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			var res *adapter.FindResult
			if a.legacy {
				res, err = compat.New(svc).Find(cmd.Context(), p, compat.FindOptions{Paginate: page})
			} else {
				res, err = svc.Find(cmd.Context(), p, adapter.FindOptions{Paginate: page})
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&paginate, "paginate", false, "Return the {total, limit, skip, data} envelope")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var q string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get one record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := parseQuery(q)
			if err != nil {
				return err
			}

			svc, closeFn, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			var r *record.Record
			if a.legacy {
				r, err = compat.New(svc).Get(cmd.Context(), id, p)
			} else {
				r, err = svc.Get(cmd.Context(), id, p)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().StringVarP(&q, "query", "q", "", "Query that must also match")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <data|->",
		Short: "Create one record, or many from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readArg(cmd, args[0])
			if err != nil {
				return err
			}
			rs, many, err := parseRecords(data)
			if err != nil {
				return err
			}

			svc, closeFn, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if many {
				out, err := svc.CreateMany(cmd.Context(), rs)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			out, err := svc.Create(cmd.Context(), rs[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newPatchCmd(a *app) *cobra.Command {
	var q string
	var many, allowAll bool

	cmd := &cobra.Command{
		Use:   "patch [id] <data|->",
		Short: "Update a record by id, or every record matching --query with --many",
		Args: func(cmd *cobra.Command, args []string) error {
			if many {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseQuery(q)
			if err != nil {
				return err
			}
			raw, err := readArg(cmd, args[len(args)-1])
			if err != nil {
				return err
			}
			data, err := parseRecord(raw)
			if err != nil {
				return err
			}

			svc, closeFn, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if many {
				out, err := svc.PatchMany(cmd.Context(), data, p, allowAll)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if a.legacy {
				out, err := compat.New(svc).Patch(cmd.Context(), id, data, p)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			out, err := svc.Patch(cmd.Context(), id, data, p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&q, "query", "q", "", "Query selecting the records")
	cmd.Flags().BoolVar(&many, "many", false, "Update every record matching --query")
	cmd.Flags().BoolVar(&allowAll, "all", false, "With --many, allow an empty query to update every record")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var q string
	var many, allowAll bool

	cmd := &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a record by id, or every record matching --query with --many",
		Args: func(cmd *cobra.Command, args []string) error {
			if many {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseQuery(q)
			if err != nil {
				return err
			}

			svc, closeFn, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if many {
				out, err := svc.RemoveMany(cmd.Context(), p, allowAll)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if a.legacy {
				out, err := compat.New(svc).Remove(cmd.Context(), id, p)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			out, err := svc.Remove(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&q, "query", "q", "", "Query selecting the records")
	cmd.Flags().BoolVar(&many, "many", false, "Remove every record matching --query")
	cmd.Flags().BoolVar(&allowAll, "all", false, "With --many, allow an empty query to remove every record")
	return cmd
}

func newRemoveAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-all",
		Short: "Remove every record of the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			out, err := svc.RemoveAll(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info("Removed all records from the table")
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
