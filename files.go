package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rixian/drive-go/pkg/drive"
)

// maxParallelLookups bounds concurrent requests for multi-path commands.
const maxParallelLookups = 4

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <path>",
		Short: "List the children of a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runLs,
	}
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>...",
		Short: "Display file or directory metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runStat,
	}
}

func newExistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <path>...",
		Short: "Report whether items exist",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExists,
	}
}

func newStreamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streams <path>",
		Short: "List the named streams of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runStreams,
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path> [local-path]",
		Short: "Download a file (local-path \"-\" writes to stdout)",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-path> <path>",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(2),
		RunE:  runPut,
	}

	cmd.Flags().Bool("overwrite", false, "replace an existing file")

	return cmd
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>...",
		Short: "Delete files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRm,
	}
}

func newCpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <source> <target>",
		Short: "Copy an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, args, "Copied", (*drive.Client).Copy)
		},
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <source> <target>",
		Short: "Move an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, args, "Moved", (*drive.Client).Move)
		},
	}
}

func runLs(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	p, err := parsePath(args[0])
	if err != nil {
		return err
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	items, err := client.ListChildren(cmd.Context(), p, cc.CallOptions()...)
	if err != nil {
		return fmt.Errorf("listing %s: %w", p, err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, items)
	}

	printItemsTable(cc.Out, items)

	return nil
}

func printItemsTable(w io.Writer, items []drive.ItemInfo) {
	// Directories first, then alphabetical.
	sort.Slice(items, func(i, j int) bool {
		if items[i].IsDir() != items[j].IsDir() {
			return items[i].IsDir()
		}

		return items[i].Name < items[j].Name
	})

	headers := []string{"NAME", "SIZE", "MODIFIED"}
	rows := make([][]string, 0, len(items))

	for i := range items {
		name, size := items[i].Name, formatSize(items[i].Size())
		if items[i].IsDir() {
			name += "/"
			size = "-"
		}

		rows = append(rows, []string{name, size, formatTime(items[i].LastModifiedOn)})
	}

	printTable(w, headers, rows)
}

// lookupAll runs fn for every argument with bounded concurrency and returns
// the results in argument order. The first failure cancels the rest.
func lookupAll[T any](
	cmd *cobra.Command, args []string,
	fn func(ctx context.Context, client *drive.Client, p drive.CloudPath) (T, error),
) ([]T, error) {
	cc := mustCLIContext(cmd.Context())

	paths := make([]drive.CloudPath, len(args))
	for i, arg := range args {
		p, err := parsePath(arg)
		if err != nil {
			return nil, err
		}

		paths[i] = p
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return nil, err
	}

	results := make([]T, len(paths))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(maxParallelLookups)

	for i, p := range paths {
		g.Go(func() error {
			v, err := fn(ctx, client, p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}

			results[i] = v

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func runStat(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	items, err := lookupAll(cmd, args, func(ctx context.Context, c *drive.Client, p drive.CloudPath) (drive.ItemInfo, error) {
		return c.GetItemInfo(ctx, p, cc.CallOptions()...)
	})
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, items)
	}

	for i := range items {
		if i > 0 {
			fmt.Fprintln(cc.Out)
		}

		printItemDetails(cc.Out, &items[i])
	}

	return nil
}

func printItemDetails(w io.Writer, item *drive.ItemInfo) {
	fmt.Fprintf(w, "Path:      %s\n", item.FullPath)
	fmt.Fprintf(w, "Name:      %s\n", item.Name)
	fmt.Fprintf(w, "Type:      %s\n", item.Type)
	fmt.Fprintf(w, "ID:        %s\n", item.ID)

	if item.File != nil {
		fmt.Fprintf(w, "Size:      %s (%d bytes)\n", formatSize(item.File.Length), item.File.Length)

		if item.File.ContentType != "" {
			fmt.Fprintf(w, "Content:   %s\n", item.File.ContentType)
		}
	}

	if item.Directory != nil {
		fmt.Fprintf(w, "Children:  %t\n", item.Directory.HasChildren)
	}

	fmt.Fprintf(w, "Created:   %s\n", formatTime(item.CreatedOn))
	fmt.Fprintf(w, "Modified:  %s\n", formatTime(item.LastModifiedOn))
}

// existsOutput is the JSON schema for one `exists --json` entry.
type existsOutput struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

func runExists(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	found, err := lookupAll(cmd, args, func(ctx context.Context, c *drive.Client, p drive.CloudPath) (bool, error) {
		return c.Exists(ctx, p, cc.CallOptions()...)
	})
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		out := make([]existsOutput, len(args))
		for i := range args {
			out[i] = existsOutput{Path: args[i], Exists: found[i]}
		}

		return printJSON(cc.Out, out)
	}

	rows := make([][]string, len(args))
	for i := range args {
		rows[i] = []string{args[i], strconv.FormatBool(found[i])}
	}

	printTable(cc.Out, []string{"PATH", "EXISTS"}, rows)

	return nil
}

func runStreams(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	p, err := parsePath(args[0])
	if err != nil {
		return err
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	streams, err := client.ListFileStreams(cmd.Context(), p, cc.CallOptions()...)
	if err != nil {
		return fmt.Errorf("listing streams of %s: %w", p, err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, streams)
	}

	for _, s := range streams {
		fmt.Fprintln(cc.Out, s)
	}

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	p, err := parsePath(args[0])
	if err != nil {
		return err
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	f, err := client.DownloadContent(cmd.Context(), p, cc.CallOptions()...)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", p, err)
	}

	if f == nil {
		return fmt.Errorf("downloading %s: server returned no content", p)
	}

	defer f.Close()

	localPath := ""
	if len(args) > 1 {
		localPath = args[1]
	}

	if localPath == "-" {
		_, err := io.Copy(cc.Out, f)
		return err
	}

	if localPath == "" {
		localPath, err = defaultLocalName(f.FileName, p)
		if err != nil {
			return err
		}
	}

	n, err := writeFileAtomic(localPath, f)
	if err != nil {
		return err
	}

	cc.Logger.Debug("download complete", slog.String("local_path", localPath), slog.Int64("bytes", n))
	cc.Statusf("Downloaded %s (%s)\n", localPath, formatSize(n))

	return nil
}

// defaultLocalName picks the file name for a download without an explicit
// destination. The server's name is reduced to its last element so it can
// only land in the working directory.
func defaultLocalName(serverName string, p drive.CloudPath) (string, error) {
	for _, candidate := range []string{serverName, path.Base(p.Path())} {
		name := filepath.Base(filepath.FromSlash(strings.ReplaceAll(candidate, "\\", "/")))
		if name != "." && name != ".." && name != string(filepath.Separator) && name != "" {
			return name, nil
		}
	}

	return "", fmt.Errorf("cannot derive a local file name for %s; pass a local path", p)
}

// writeFileAtomic streams r into a temp file next to dst and renames it
// into place once the copy completes.
func writeFileAtomic(dst string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".partial-*")
	if err != nil {
		return 0, fmt.Errorf("creating download file: %w", err)
	}

	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("writing %s: %w", dst, err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming download to %q: %w", dst, err)
	}

	return n, nil
}

func runPut(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	localPath := args[0]

	p, err := parsePath(args[1])
	if err != nil {
		return err
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	// *os.File is seekable, so the upload can be replayed on retry.
	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening local file: %w", err)
	}
	defer local.Close()

	create := drive.CreateOptions{
		File: &drive.FileParameter{
			Data:        local,
			FileName:    filepath.Base(localPath),
			ContentType: mime.TypeByExtension(filepath.Ext(localPath)),
		},
	}

	if cmd.Flags().Changed("overwrite") {
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		create.Overwrite = &overwrite
	}

	item, err := client.CreateDriveItem(cmd.Context(), p, create, cc.CallOptions()...)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", p, err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, item)
	}

	cc.Statusf("Uploaded %s (%s)\n", item.FullPath, formatSize(item.Size()))

	return nil
}

func runMkdir(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	p, err := parsePath(args[0])
	if err != nil {
		return err
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	item, err := client.CreateDriveItem(cmd.Context(), p, drive.CreateOptions{}, cc.CallOptions()...)
	if err != nil {
		return fmt.Errorf("creating %s: %w", p, err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, item)
	}

	cc.Statusf("Created %s\n", item.FullPath)

	return nil
}

// runRm deletes every path in order and reports all failures together.
func runRm(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	var result *multierror.Error

	for _, arg := range args {
		p, err := parsePath(arg)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		if err := client.DeleteItem(cmd.Context(), p, cc.CallOptions()...); err != nil {
			cc.Logger.Warn("delete failed", slog.String("path", p.String()), slog.String("error", err.Error()))
			result = multierror.Append(result, fmt.Errorf("deleting %s: %w", p, err))

			continue
		}

		cc.Statusf("Deleted %s\n", p)
	}

	return result.ErrorOrNil()
}

type transferFunc func(c *drive.Client, ctx context.Context, source, target drive.CloudPath, opts ...drive.CallOption) error

func runTransfer(cmd *cobra.Command, args []string, verb string, transfer transferFunc) error {
	cc := mustCLIContext(cmd.Context())

	source, err := parsePath(args[0])
	if err != nil {
		return err
	}

	target, err := parsePath(args[1])
	if err != nil {
		return err
	}

	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	if err := transfer(client, cmd.Context(), source, target, cc.CallOptions()...); err != nil {
		return fmt.Errorf("%s -> %s: %w", source, target, err)
	}

	cc.Statusf("%s %s -> %s\n", verb, source, target)

	return nil
}
