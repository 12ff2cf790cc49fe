package commands

import (
	"context"
	"sort"

	"github.com/vitaminmoo/gyverhub/internal/api"
)

// UI opens the panel and prints its widgets
func UI(ctx context.Context, c *api.Client, asJSON bool) error {
	p, err := c.Focus(ctx)
	if err != nil {
		return err
	}
	defer c.Unfocus(ctx)
	return printPanel(p, asJSON)
}

func printPanel(p *api.Panel, asJSON bool) error {
	if asJSON {
		return PrintJSON(p.Controls)
	}
	for _, w := range p.Controls {
		switch {
		case w.Name() != "":
			printf("%-8s %-10s %-16s %s\n", w.Name(), w.Type(), w.Label(), w.Value())
		default:
			printf("%-8s %-10s %s\n", "", w.Type(), w.Label())
		}
	}
	return nil
}

// Set writes a widget value and prints what the device sent back
func Set(ctx context.Context, c *api.Client, name, value string, asJSON bool) error {
	res, err := c.Set(ctx, name, value)
	if err != nil {
		return err
	}
	defer c.Unfocus(ctx)
	if res.Panel != nil {
		return printPanel(res.Panel, asJSON)
	}
	if asJSON {
		return PrintJSON(res.Updates)
	}
	if len(res.Updates) == 0 {
		printf("OK\n")
		return nil
	}
	names := make([]string, 0, len(res.Updates))
	for n := range res.Updates {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		printf("%s = %s\n", n, res.Updates[n])
	}
	return nil
}

// Read prints the current value of a widget
func Read(ctx context.Context, c *api.Client, name string) error {
	v, err := c.Read(ctx, name)
	if err != nil {
		return err
	}
	printf("%s\n", v)
	return nil
}

// CLI sends one console line
func CLI(ctx context.Context, c *api.Client, text string) error {
	return c.CLI(ctx, text)
}

// Data sends a value to the device data handler and prints the answer
func Data(ctx context.Context, c *api.Client, name, value string) error {
	out, err := c.Data(ctx, name, value)
	if err != nil {
		return err
	}
	if out == "" {
		out = "OK"
	}
	printf("%s\n", out)
	return nil
}
