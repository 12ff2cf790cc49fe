package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/vitaminmoo/gyverhub/internal/api"
	"github.com/vitaminmoo/gyverhub/internal/firmware"
)

// OTA sends a firmware image to target ("flash" or "fs"). Flash images are
// checked for an ESP32 header first.
func OTA(ctx context.Context, c *api.Client, file, target string, direct bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	if target == "flash" {
		img, err := firmware.ParseESP32ImageReader(bytes.NewReader(data))
		if err != nil {
			printf("Warning: %s is not an ESP32 image: %v\n", file, err)
		} else {
			printf("Image: %d segments, entry 0x%08x\n", len(img.Segments), img.Header.EntryAddr)
		}
	}
	printf("Sending %s (%s) to %s\n", file, humanize.IBytes(uint64(len(data))), target)

	if direct {
		err = c.OTAHTTP(ctx, target, data)
	} else {
		err = c.OTA(ctx, target, data, maxUpload(ctx, c), Progress())
	}
	if err != nil {
		return err
	}
	printf("OTA OK, device restarts\n")
	return nil
}

// OTAURL asks the device to download its update itself
func OTAURL(ctx context.Context, c *api.Client, target, url string) error {
	if err := c.OTAURL(ctx, target, url); err != nil {
		return err
	}
	printf("Update from %s started\n", url)
	return nil
}
