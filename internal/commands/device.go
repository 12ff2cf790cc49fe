package commands

import (
	"context"
	"strings"

	"github.com/vitaminmoo/gyverhub/internal/api"
)

// Discover prints the description of the addressed device, or of every
// device answering the prefix when all is set
func Discover(ctx context.Context, c *api.Client, all, asJSON bool) error {
	var devices []api.DeviceInfo
	if all {
		list, err := c.DiscoverAll(ctx)
		if err != nil {
			return err
		}
		devices = list
	} else {
		d, err := c.Discover(ctx)
		if err != nil {
			return err
		}
		devices = []api.DeviceInfo{*d}
	}

	if asJSON {
		return PrintJSON(devices)
	}
	for i := range devices {
		printDevice(&devices[i])
	}
	return nil
}

func printDevice(d *api.DeviceInfo) {
	printf("%s  %s\n", d.ID, d.Name)
	if d.Version != "" {
		printf("  Version:    %s\n", d.Version)
	}
	printf("  PIN:        %s\n", pinState(d.PIN))
	printf("  Max upload: %d\n", d.MaxUpload)
	printf("  OTA type:   %s\n", d.OTAType)
	if off := d.Disabled(); len(off) > 0 {
		printf("  Disabled:   %s\n", strings.Join(off, ", "))
	}
}

func pinState(hash uint32) string {
	if hash == 0 {
		return "off"
	}
	return "on"
}

// Ping checks the device answers
func Ping(ctx context.Context, c *api.Client) error {
	if err := c.Ping(ctx); err != nil {
		return err
	}
	printf("%s: OK\n", c.Device())
	return nil
}

// Info prints the info answer section by section
func Info(ctx context.Context, c *api.Client, asJSON bool) error {
	info, err := c.GetInfo(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		out := make(map[string]map[string]string, len(info.Sections))
		for _, s := range info.Sections {
			m := map[string]string{}
			for _, e := range info.Entries[s] {
				m[e.Label] = e.Value
			}
			out[s] = m
		}
		return PrintJSON(out)
	}

	for _, s := range info.Sections {
		printf("%s:\n", s)
		width := 0
		for _, e := range info.Entries[s] {
			width = max(width, len(e.Label))
		}
		for _, e := range info.Entries[s] {
			printf("  %-*s  %s\n", width, e.Label, formatInfoValue(e.Value))
		}
	}
	return nil
}

// Reboot asks the device to restart
func Reboot(ctx context.Context, c *api.Client) error {
	if err := c.Reboot(ctx); err != nil {
		return err
	}
	printf("Reboot requested\n")
	return nil
}
