package commands

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/vitaminmoo/gyverhub/internal/api"
	"github.com/vitaminmoo/gyverhub/internal/config"
)

// formatInfoValue renders [used,total] pairs as sizes and passes the rest
func formatInfoValue(v string) string {
	if !strings.HasPrefix(v, "[") || !strings.HasSuffix(v, "]") {
		return v
	}
	parts := strings.Split(v[1:len(v)-1], ",")
	if len(parts) != 2 {
		return v
	}
	used, err1 := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	total, err2 := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err1 != nil || err2 != nil {
		return v
	}
	return usage(used, total)
}

func usage(used, total uint64) string {
	if total == 0 {
		return humanize.IBytes(used)
	}
	return fmt.Sprintf("%s / %s (%.0f%%)", humanize.IBytes(used), humanize.IBytes(total), float64(used)*100/float64(total))
}

// List prints the device filesystem
func List(ctx context.Context, c *api.Client, asJSON bool) error {
	l, err := c.List(ctx)
	if err != nil {
		return err
	}
	return printListing(l, asJSON)
}

func printListing(l *api.Listing, asJSON bool) error {
	if asJSON {
		return PrintJSON(l)
	}
	for _, f := range l.Files {
		if f.Dir {
			printf("%10s  %s\n", "-", f.Path)
		} else {
			printf("%10s  %s\n", humanize.IBytes(uint64(f.Size)), f.Path)
		}
	}
	printf("Used: %s\n", usage(l.Used, l.Total))
	return nil
}

// Fetch downloads a device file to output, or to its base name when output
// is empty. direct uses the HTTP fetch endpoint instead of chunks.
func Fetch(ctx context.Context, c *api.Client, file, output string, direct bool) error {
	if output == "" {
		output = path.Base(file)
	}
	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}

	var n int64
	if direct {
		n, err = c.FetchHTTP(ctx, file, out)
	} else {
		n, err = c.Fetch(ctx, file, out, Progress())
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(output)
		return err
	}
	printf("Saved %s to %s\n", humanize.IBytes(uint64(n)), output)
	return nil
}

// maxUpload reads max_upl from discover
func maxUpload(ctx context.Context, c *api.Client) int {
	d, err := c.Discover(ctx)
	if err != nil {
		config.Debugf("discover failed, using default chunk: %v", err)
		return api.DefaultUploadChunk
	}
	return d.MaxUpload
}

// Upload stores a local file on the device at dest
func Upload(ctx context.Context, c *api.Client, input, dest string, direct bool) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}
	if dest == "" {
		dest = "/" + path.Base(input)
	}
	printf("Uploading %s (%s) to %s\n", input, humanize.IBytes(uint64(len(data))), dest)

	if direct {
		err = c.UploadHTTP(ctx, dest, data)
	} else {
		err = c.Upload(ctx, dest, data, maxUpload(ctx, c), Progress())
	}
	if err != nil {
		return err
	}
	printf("Upload OK\n")
	return nil
}

// Delete removes a device file
func Delete(ctx context.Context, c *api.Client, file string, asJSON bool) error {
	l, err := c.Delete(ctx, file)
	if err != nil {
		return err
	}
	return printListing(l, asJSON)
}

// Rename moves a device file
func Rename(ctx context.Context, c *api.Client, from, to string, asJSON bool) error {
	l, err := c.Rename(ctx, from, to)
	if err != nil {
		return err
	}
	return printListing(l, asJSON)
}

// Format wipes the device filesystem after confirmation
func Format(ctx context.Context, c *api.Client, yes bool) error {
	if !yes && !ConfirmAction("This erases every file on "+c.Device()+". Type 'yes' to continue: ") {
		printf("Aborted\n")
		return nil
	}
	l, err := c.Format(ctx)
	if err != nil {
		return err
	}
	printf("Formatted, %s free\n", humanize.IBytes(l.Total-l.Used))
	return nil
}
