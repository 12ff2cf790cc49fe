package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vitaminmoo/gyverhub/internal/api"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
	"github.com/vitaminmoo/gyverhub/internal/util"
)

// Raw sends a command path as typed and prints every answer frame
func Raw(ctx context.Context, c *api.Client, path string, asJSON bool) error {
	frames, err := c.Raw(ctx, path)
	if err != nil {
		return err
	}
	if asJSON {
		out := make([]map[string]any, 0, len(frames))
		for _, f := range frames {
			m := make(map[string]any, len(f.Fields))
			for k, v := range f.Fields {
				m[k] = v
			}
			out = append(out, m)
		}
		return PrintJSON(out)
	}
	for i := range frames {
		printFrame(fmt.Sprintf("#%d", i), &frames[i])
	}
	return nil
}

func printFrame(tag string, f *protocol.Frame) {
	keys := make([]string, 0, len(f.Fields))
	for k := range f.Fields {
		if k != "id" && k != "type" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v := string(f.Fields[k])
		if len(v) > 60 {
			v = v[:60] + "..."
		}
		fmt.Fprintf(&sb, " %s=%s", k, v)
	}
	printf("%s [%s] id=%s:%s\n", tag, f.Type, f.ID, sb.String())
}

// Frames decodes a capture file and summarises each answer. Lines hold one
// frame each, optionally preceded by a direction column and a tab.
func Frames(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	successCount := 0
	failCount := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		direction := "---"
		if dir, rest, ok := strings.Cut(line, "\t"); ok {
			direction, line = dir, rest
		}

		if !strings.HasPrefix(line, "{") {
			// a command path, not an answer
			if !util.IsTextData([]byte(line)) {
				printf("Line %d [%s]: binary data\n%s", lineNum, direction, util.HexDump([]byte(line)))
				failCount++
				continue
			}
			pth, _ := protocol.SplitValue(line)
			p := protocol.SplitPath(pth)
			printf("Line %d [%s]: %s %s\n", lineNum, direction, p.Verb, p.Name)
			successCount++
			continue
		}

		frames, err := protocol.DecodeFrames([]byte(line))
		if err != nil {
			printf("Line %d [%s]: decode error: %v\n", lineNum, direction, err)
			failCount++
			continue
		}
		for i := range frames {
			printFrame(fmt.Sprintf("Line %d [%s]", lineNum, direction), &frames[i])
		}
		successCount++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	printf("\n--- Summary ---\n")
	printf("Total lines: %d\n", lineNum)
	printf("Success: %d\n", successCount)
	printf("Failed: %d\n", failCount)
	return nil
}
