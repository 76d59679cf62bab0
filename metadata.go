package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newMetaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Manage file metadata",
	}

	cmd.AddCommand(newMetaLsCmd())
	cmd.AddCommand(newMetaSetCmd())
	cmd.AddCommand(newMetaRmCmd())
	cmd.AddCommand(newMetaClearCmd())

	return cmd
}

func newMetaLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <path>",
		Short: "List the metadata of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runMetaLs,
	}
}

func newMetaSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <key=value>...",
		Short: "Add or replace metadata entries",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runMetaSet,
	}
}

func newMetaRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path> <key>",
		Short: "Remove one metadata entry",
		Args:  cobra.ExactArgs(2),
		RunE:  runMetaRm,
	}
}

func newMetaClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <path>",
		Short: "Remove all metadata from a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runMetaClear,
	}
}

func runMetaLs(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	p, err := parsePath(args[0])
	if err != nil {
		return err
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	md, err := client.ListFileMetadata(cmd.Context(), p, cc.CallOptions()...)
	if err != nil {
		return fmt.Errorf("listing metadata of %s: %w", p, err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, md)
	}

	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, md[k]}
	}

	printTable(cc.Out, []string{"KEY", "VALUE"}, rows)

	return nil
}

// parseMetadataArgs turns key=value arguments into a map. Later duplicates win.
func parseMetadataArgs(args []string) (map[string]string, error) {
	md := make(map[string]string, len(args))

	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata entry %q: expected key=value", arg)
		}

		md[k] = v
	}

	return md, nil
}

func runMetaSet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	p, err := parsePath(args[0])
	if err != nil {
		return err
	}

	md, err := parseMetadataArgs(args[1:])
	if err != nil {
		return err
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	if err := client.UpsertFileMetadata(cmd.Context(), p, md, cc.CallOptions()...); err != nil {
		return fmt.Errorf("updating metadata of %s: %w", p, err)
	}

	cc.Statusf("Updated %d metadata entries on %s\n", len(md), p)

	return nil
}

func runMetaRm(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	p, err := parsePath(args[0])
	if err != nil {
		return err
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	if err := client.RemoveFileMetadata(cmd.Context(), p, args[1], cc.CallOptions()...); err != nil {
		return fmt.Errorf("removing metadata %q from %s: %w", args[1], p, err)
	}

	cc.Statusf("Removed %s from %s\n", args[1], p)

	return nil
}

func runMetaClear(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	p, err := parsePath(args[0])
	if err != nil {
		return err
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	if err := client.ClearFileMetadata(cmd.Context(), p, cc.CallOptions()...); err != nil {
		return fmt.Errorf("clearing metadata of %s: %w", p, err)
	}

	cc.Statusf("Cleared metadata on %s\n", p)

	return nil
}
