package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Fepozopo/exifgps/pkg/geotag"
	"github.com/Fepozopo/exifgps/pkg/logging"
)

// Shell is the interactive session behind "exifgps shell". It holds one
// image in memory; commands rewrite that buffer and "s" writes it out.
type Shell struct {
	root   *Root
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer

	cur   []byte
	path  string
	dirty bool

	// pickers default to fzf; tests replace them.
	selectFile    func(startDir string) (string, error)
	selectCommand func(commands []CommandSpec) (string, error)
	updater       Updater
}

// NewShell creates a shell reading commands from in.
func NewShell(root *Root, in io.Reader, out, errOut io.Writer) *Shell {
	s := &Shell{
		root:          root,
		reader:        bufio.NewReader(in),
		out:           out,
		errOut:        errOut,
		selectFile:    SelectFileWithFzf,
		selectCommand: SelectCommandWithFzf,
	}
	s.updater = Updater{Out: out, Prompt: s.promptLine}
	return s
}

func (s *Shell) usage() {
	fmt.Fprintln(s.out, "Commands available:")
	fmt.Fprintln(s.out, "  /  - select and apply command (tag, inspect, strip, locate)")
	fmt.Fprintln(s.out, "  o  - open another image")
	fmt.Fprintln(s.out, "  s  - save current image")
	fmt.Fprintln(s.out, "  u  - check for updates")
	fmt.Fprintln(s.out, "  h  - show this help message")
	fmt.Fprintln(s.out, "  q  - quit")
}

func (s *Shell) promptLine(prompt string) (string, error) {
	return readLine(s.reader, s.out, prompt)
}

// promptLineOrFzf treats a lone "/" as a request to pick a file with fzf,
// falling back to a typed prompt when fzf is unavailable.
func (s *Shell) promptLineOrFzf(prompt string) (string, error) {
	input, err := s.promptLine(prompt)
	if err != nil || input != "/" {
		return input, err
	}
	sel, selErr := s.selectFile(".")
	if selErr == nil && sel != "" {
		fmt.Fprintf(s.out, " [fzf] %s\n", sel)
		return sel, nil
	}
	return s.promptLine(prompt)
}

// Open loads path as the current image.
func (s *Shell) Open(path string) error {
	img, err := loadJPEG(path)
	if err != nil {
		return err
	}
	s.cur, s.path, s.dirty = img, path, false
	fmt.Fprintf(s.out, "Opened %s (%d bytes)\n", path, len(img))
	return nil
}

// Run reads commands until "q" or end of input.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "exifgps interactive shell")
	s.usage()

	for {
		line, err := s.promptLine("> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}

		switch line[0] {
		case '/':
			if s.cur == nil {
				fmt.Fprintln(s.out, "No image loaded. Press 'o' to open an image first, or pass an image path to shell.")
				continue
			}
			name, err := s.chooseCommand(strings.TrimSpace(line[1:]))
			if err != nil {
				fmt.Fprintln(s.errOut, err)
				continue
			}
			if name == "" {
				fmt.Fprintln(s.out, "selection cancelled")
				continue
			}
			if err := s.apply(name); err != nil {
				fmt.Fprintf(s.errOut, "%s: %v\n", name, err)
			}

		case 'o':
			path, _ := s.promptLineOrFzf("Enter path to image to open ('/' for fzf, empty to cancel): ")
			if path == "" {
				fmt.Fprintln(s.out, "open cancelled")
				continue
			}
			if err := s.Open(path); err != nil {
				fmt.Fprintf(s.errOut, "failed to read image %s: %v\n", path, err)
			}

		case 's':
			if s.cur == nil {
				fmt.Fprintln(s.out, "No image loaded.")
				continue
			}
			def := defaultOutput(s.root.cfg.TempDir, s.path)
			dest, _ := s.promptLine(fmt.Sprintf("Enter output filename [%s]: ", def))
			if dest == "" {
				dest = def
			}
			if err := geotag.WriteFile(dest, s.cur, 0o644); err != nil {
				fmt.Fprintf(s.errOut, "failed to write image: %v\n", err)
				continue
			}
			s.dirty = false
			fmt.Fprintf(s.out, "Saved to %s\n", dest)

		case 'u':
			if err := s.updater.CheckForUpdates(ctx); err != nil {
				fmt.Fprintf(s.errOut, "update check error: %v\n", err)
			}

		case 'h':
			s.usage()

		case 'q':
			if s.dirty {
				answer, _ := s.promptLine("Unsaved changes. Quit anyway? (y/N): ")
				if a := strings.ToLower(answer); a != "y" && a != "yes" {
					continue
				}
			}
			fmt.Fprintln(s.out, "Exiting...")
			return nil

		default:
			fmt.Fprintf(s.out, "unknown command %q, press 'h' for help\n", line)
		}
	}
}

// chooseCommand resolves typed text, or runs fzf when nothing was typed and
// falls back to a numbered list.
func (s *Shell) chooseCommand(typed string) (string, error) {
	if typed == "" {
		if name, err := s.selectCommand(Commands); err == nil && name != "" {
			return name, nil
		}
		fmt.Fprintln(s.out, "Command selection (fallback):")
		for i, c := range Commands {
			fmt.Fprintf(s.out, "  %d) %s - %s\n", i+1, c.Name, c.Description)
		}
		sel, err := s.promptLine("Enter number or command name (leave empty to cancel): ")
		if err != nil || sel == "" {
			return "", nil
		}
		typed = sel
	}
	if idx, err := strconv.Atoi(typed); err == nil {
		if idx < 1 || idx > len(Commands) {
			return "", fmt.Errorf("invalid selection %d", idx)
		}
		return Commands[idx-1].Name, nil
	}
	lower := strings.ToLower(typed)
	var matches []string
	for _, c := range Commands {
		if c.Name == lower {
			return c.Name, nil
		}
		if strings.HasPrefix(c.Name, lower) {
			matches = append(matches, c.Name)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("unknown command: %s", typed)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous selection %q, candidates: %s", typed, strings.Join(matches, ", "))
	}
}

// apply prompts for the command's remaining arguments and runs it against
// the current image. Path arguments are bound to the open image.
func (s *Shell) apply(name string) error {
	spec, ok := s.root.store.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}
	tooltip, _, _ := s.root.store.GetCommandHelp(name)
	fmt.Fprintln(s.out, "\n"+tooltip+"\n")

	raw := make([]string, len(spec.Args))
	for i, a := range spec.Args {
		if a.Type == ParamTypePath {
			raw[i] = s.path
			continue
		}
		prompt := fmt.Sprintf("%s (%s", a.Name, a.Type)
		if a.Example != "" {
			prompt += ", e.g. " + a.Example
		}
		val, err := s.promptLine(prompt + "): ")
		if err != nil {
			return err
		}
		raw[i] = val
	}
	args, err := NormalizeArgs(s.root.store, name, raw)
	if err != nil {
		return fmt.Errorf("input validation error: %w", err)
	}

	switch name {
	case "tag":
		lat, _ := strconv.ParseFloat(args[1], 64)
		lon, _ := strconv.ParseFloat(args[2], 64)
		start := time.Now()
		out, err := geotag.Tag(s.cur, lat, lon)
		if err != nil {
			logging.LogOperationError(s.root.log, "tag", s.path, err)
			return err
		}
		logging.LogGeotag(s.root.log, s.path, lat, lon, len(s.cur), len(out), time.Since(start))
		s.cur, s.dirty = out, true
		fmt.Fprintf(s.out, "Tagged %s with %.7f, %.7f (unsaved)\n", s.path, lat, lon)
	case "inspect":
		report, err := geotag.Inspect(s.cur)
		if err != nil {
			return err
		}
		printReport(s.out, s.path, report, false)
	case "strip":
		strip, what := geotag.StripGPS, "GPS"
		if args[1] == "true" {
			strip, what = geotag.StripAll, "EXIF segment"
		}
		out, err := strip(s.cur)
		if err != nil {
			return err
		}
		s.cur, s.dirty = out, true
		fmt.Fprintf(s.out, "%s removed (unsaved)\n", what)
	case "locate":
		lat, lon, err := geotag.Locate(s.cur)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%.8f %.8f\n", lat, lon)
	default:
		return fmt.Errorf("command %s has no shell action", name)
	}
	return nil
}
