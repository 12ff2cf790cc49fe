package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/vitaminmoo/gyverhub/internal/firmware"
)

// Out receives everything the commands print
var Out io.Writer = os.Stdout

// In is where ConfirmAction reads the answer from
var In io.Reader = os.Stdin

func printf(format string, args ...any) {
	fmt.Fprintf(Out, format, args...)
}

// PrintJSON pretty-prints v. Raw JSON bytes are indented as they are.
func PrintJSON(v any) error {
	var data []byte
	switch raw := v.(type) {
	case []byte:
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			printf("%s\n", raw)
			return nil
		}
		data = pretty.Bytes()
	default:
		var err error
		data, err = json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
	}
	printf("%s\n", data)
	return nil
}

// Progress returns a callback that redraws one status line per phase. Fetch
// reports chunks, the other phases report bytes.
func Progress() firmware.ProgressCallback {
	return func(current, total int64, description string) {
		switch {
		case description == "fetch":
			p := firmware.TransferProgress{ChunksSent: int(current), TotalChunks: int(total)}
			printf("\r  fetch: chunk %d/%d (%.1f%%)    ", current, total, p.Percent()*100)
		case total > 0:
			p := firmware.TransferProgress{BytesSent: current, TotalBytes: total}
			printf("\r  %s: %s / %s (%.1f%%)    ", description,
				humanize.IBytes(uint64(current)), humanize.IBytes(uint64(total)), p.Percent()*100)
		default:
			printf("\r  %s: %s    ", description, humanize.IBytes(uint64(current)))
		}
		if total > 0 && current >= total {
			printf("\n")
		}
	}
}

// ConfirmAction prompts the user to type 'yes' to continue.
// Returns true if confirmed, false otherwise.
func ConfirmAction(prompt string) bool {
	printf("%s", prompt)

	reader := bufio.NewReader(In)
	confirm, _ := reader.ReadString('\n')
	confirm = strings.TrimSpace(confirm)

	return confirm == "yes"
}
