package alsa

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gen2brain/audiodev"
)

const (
	blockBegin = "# BEGIN audiodev managed block"
	blockEnd   = "# END audiodev managed block"

	// fallbackPCM fills a flow with no configured stream, it is defined by alsa-lib itself.
	fallbackPCM = "sysdefault"
)

// pcmRoles maps the PCM definitions of the managed block to roles.
var pcmRoles = [2]string{
	audiodev.Multimedia:     "pcm.!default",
	audiodev.Communications: "pcm.communications",
}

// Defaults holds the hardware PCM names of the default streams, indexed by flow and role.
// An empty name means no default is configured.
type Defaults [2][2]string

// Get returns the PCM name for flow and role.
func (d Defaults) Get(flow audiodev.Flow, role audiodev.Role) string {
	return d[flow][role]
}

// Set sets the PCM name for flow and role.
func (d *Defaults) Set(flow audiodev.Flow, role audiodev.Role, pcm string) {
	d[flow][role] = pcm
}

// ParseDefaults reads the managed block from an asoundrc.
// The second result reports whether the block was found.
func ParseDefaults(r io.Reader) (Defaults, bool, error) {
	var d Defaults

	found, inBlock := false, false
	role := -1

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == blockBegin:
			found, inBlock = true, true

			continue
		case line == blockEnd:
			inBlock = false

			continue
		case !inBlock:
			continue
		}

		if line == "}" {
			role = -1

			continue
		}

		for i, name := range pcmRoles {
			if strings.HasPrefix(line, name+" ") || line == name+"{" {
				role = i
			}
		}

		if role < 0 {
			continue
		}

		key, value, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}

		var flow audiodev.Flow
		switch key {
		case "playback.pcm":
			flow = audiodev.Playback
		case "capture.pcm":
			flow = audiodev.Recording
		default:
			continue
		}

		pcm, err := strconv.Unquote(strings.TrimSpace(value))
		if err != nil {
			return Defaults{}, false, fmt.Errorf("invalid %s value %s: %w", key, value, err)
		}

		if pcm == fallbackPCM {
			continue
		}

		d[flow][role] = strings.Replace(pcm, "plughw:", "hw:", 1)
	}

	if err := scanner.Err(); err != nil {
		return Defaults{}, false, fmt.Errorf("could not parse asoundrc: %w", err)
	}

	return d, found, nil
}

// Render returns the managed block for d, including the begin and end markers.
// Streams are routed through the plug layer so clients get format conversion.
// Every written block carries both flows, an unset flow falls back to sysdefault.
func (d Defaults) Render() string {
	var sb strings.Builder

	sb.WriteString(blockBegin + "\n")

	for role, name := range pcmRoles {
		if d[audiodev.Playback][role] == "" && d[audiodev.Recording][role] == "" {
			continue
		}

		sb.WriteString(name + " {\n\ttype asym\n")

		for flow, key := range [2]string{"playback.pcm", "capture.pcm"} {
			pcm := fallbackPCM
			if d[flow][role] != "" {
				pcm = strings.Replace(d[flow][role], "hw:", "plughw:", 1)
			}

			fmt.Fprintf(&sb, "\t%s %q\n", key, pcm)
		}

		sb.WriteString("}\n")
	}

	sb.WriteString(blockEnd + "\n")

	return sb.String()
}

// ReplaceBlock returns content with the managed block replaced by d, or appended when there is none.
// Everything outside the block is preserved.
func ReplaceBlock(content []byte, d Defaults) []byte {
	block := d.Render()

	begin := bytes.Index(content, []byte(blockBegin))
	if begin >= 0 {
		if end := bytes.Index(content[begin:], []byte(blockEnd)); end >= 0 {
			end += begin + len(blockEnd)
			if end < len(content) && content[end] == '\n' {
				end++
			}

			out := make([]byte, 0, len(content)+len(block))
			out = append(out, content[:begin]...)
			out = append(out, block...)

			return append(out, content[end:]...)
		}
	}

	out := bytes.Clone(content)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}

	return append(out, block...)
}

// LoadDefaults reads the managed block from the file at path. A missing file has no block.
func LoadDefaults(path string) (Defaults, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Defaults{}, false, nil
		}

		return Defaults{}, false, err
	}
	defer f.Close()

	return ParseDefaults(f)
}

// SaveDefaults writes d into the managed block of the file at path.
// The file is replaced atomically, readers see either the old or the new content.
func SaveDefaults(path string, d Defaults) error {
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	mode := fs.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".asoundrc-*")
	if err != nil {
		return fmt.Errorf("could not create temporary file: %w", err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(ReplaceBlock(content, d)); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("could not write %s: %w", tmp.Name(), err)
	}

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()

		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
