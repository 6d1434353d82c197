package pgtools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ListDrives перечисляет смонтированные тома через df. Результат
// используется только как подсказка оператору при выборе места бэкапа,
// поэтому ошибки здесь не критичны.
func (t *CommandTools) ListDrives(ctx context.Context) ([]DriveStat, error) {
	cmd := exec.CommandContext(ctx, "df", "-P", "-k")

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("df failed: %w", err)
	}

	return parseDF(out.String()), nil
}

// parseDF разбирает POSIX-вывод df -P -k.
func parseDF(output string) []DriveStat {
	var drives []DriveStat

	scanner := bufio.NewScanner(strings.NewReader(output))
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			// Строка заголовка
			first = false
			continue
		}
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}

		total, err1 := strconv.ParseInt(fields[1], 10, 64)
		used, err2 := strconv.ParseInt(fields[2], 10, 64)
		free, err3 := strconv.ParseInt(fields[3], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}

		drives = append(drives, DriveStat{
			Filesystem: fields[0],
			MountPoint: fields[len(fields)-1],
			TotalBytes: total * 1024,
			UsedBytes:  used * 1024,
			FreeBytes:  free * 1024,
		})
	}

	return drives
}
