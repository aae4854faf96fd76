package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Fepozopo/exifgps/pkg/catalog"
	"github.com/Fepozopo/exifgps/pkg/config"
	"github.com/Fepozopo/exifgps/pkg/geotag"
	"github.com/Fepozopo/exifgps/pkg/logging"
	"github.com/Fepozopo/exifgps/pkg/server"
	"github.com/spf13/cobra"
)

// Root carries what every subcommand needs.
type Root struct {
	cfg   config.Config
	log   *slog.Logger
	store *MetaStore
}

// NewRoot wires cfg and log into a Root.
func NewRoot(cfg config.Config, log *slog.Logger) *Root {
	if log == nil {
		log = logging.Discard()
	}
	return &Root{cfg: cfg, log: log, store: NewMetaStore(Commands)}
}

// NewRootCmd creates the root Cobra command
func NewRootCmd(cfg config.Config, log *slog.Logger) *cobra.Command {
	root := NewRoot(cfg, log)

	rootCmd := &cobra.Command{
		Use:   "exifgps",
		Short: "Write GPS positions into JPEG EXIF metadata",
		Long: `exifgps geotags JPEG images by rewriting their EXIF APP1 segment.
The compressed image data is copied byte for byte; only metadata changes.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newTagCmd(root))
	rootCmd.AddCommand(newInspectCmd(root))
	rootCmd.AddCommand(newLocateCmd(root))
	rootCmd.AddCommand(newStripCmd(root))
	rootCmd.AddCommand(newServeCmd(root))
	rootCmd.AddCommand(newHistoryCmd(root))
	rootCmd.AddCommand(newShellCmd(root))
	rootCmd.AddCommand(newVersionCmd(root))
	rootCmd.AddCommand(newUpdateCmd(root))

	return rootCmd
}

// openCatalog returns nil when path is empty.
func (r *Root) openCatalog(path string) (*catalog.Store, error) {
	if path == "" {
		return nil, nil
	}
	return catalog.Open(path)
}

// normalize validates positional args for cmd against the registry.
func (r *Root) normalize(cmd string, args []string) ([]string, error) {
	return NormalizeArgs(r.store, cmd, args)
}

func newTagCmd(root *Root) *cobra.Command {
	var (
		output      string
		altitude    float64
		when        string
		dataURI     bool
		verify      bool
		catalogPath string
	)

	cmd := &cobra.Command{
		Use:   "tag [flags] <image> <lat> <lon>",
		Short: "Write a GPS position into an image",
		Long: `Encode lat/lon as EXIF GPS rationals and write them into the image's
APP1 segment. Any existing GPS directory is replaced; all other metadata
is kept. Without -o the result goes to $EXIFGPS_TEMP_DIR/<name>.jpg.

Flags must precede the image so negative coordinates are not read as flags.`,
		Example: `  exifgps tag photo.jpg 41.0428465 29.0075283
  exifgps tag -o out.jpg --altitude 12.5 photo.jpg -33.8688 151.2093`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			norm, err := root.normalize("tag", args)
			if err != nil {
				return err
			}
			path := norm[0]
			lat, _ := strconv.ParseFloat(norm[1], 64)
			lon, _ := strconv.ParseFloat(norm[2], 64)

			var opts []geotag.Option
			if cmd.Flags().Changed("altitude") {
				opts = append(opts, geotag.WithAltitude(altitude))
			}
			if when != "" {
				t, err := time.Parse(time.RFC3339, when)
				if err != nil {
					return fmt.Errorf("--time: %w", err)
				}
				opts = append(opts, geotag.WithTime(t))
			}

			img, err := loadJPEG(path)
			if err != nil {
				return err
			}
			start := time.Now()
			info, err := geotag.Point(lat, lon, opts...)
			if err != nil {
				logging.LogOperationError(root.log, "tag", path, err)
				return err
			}
			out, err := geotag.Write(img, info)
			if err != nil {
				logging.LogOperationError(root.log, "tag", path, err)
				return err
			}
			if verify {
				if err := geotag.Verify(out); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			dest := output
			if dataURI {
				fmt.Fprintln(w, geotag.EncodeDataURI(out))
			} else if dest == "" {
				dest = defaultOutput(root.cfg.TempDir, path)
			}
			if dest != "" {
				if err := geotag.WriteFile(dest, out, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(w, "Wrote %s (%s %s)\n", dest, geotag.FormatDMS(info.Latitude, info.LatitudeRef), geotag.FormatDMS(info.Longitude, info.LongitudeRef))
			}
			logging.LogGeotag(root.log, path, lat, lon, len(img), len(out), time.Since(start))

			store, err := root.openCatalog(catalogPath)
			if err != nil {
				return err
			}
			if store == nil {
				return nil
			}
			defer store.Close()
			e, err := store.Record(cmd.Context(), catalog.Entry{
				Source:    path,
				Output:    dest,
				Latitude:  lat,
				Longitude: lon,
				LatRef:    info.LatitudeRef,
				LonRef:    info.LongitudeRef,
				BytesIn:   len(img),
				BytesOut:  len(out),
			})
			if err != nil {
				return fmt.Errorf("failed to record geotag: %w", err)
			}
			root.log.Debug("catalog entry recorded", "id", e.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path")
	cmd.Flags().Float64Var(&altitude, "altitude", 0, "altitude in meters, negative below sea level")
	cmd.Flags().StringVar(&when, "time", "", "GPS timestamp (RFC3339)")
	cmd.Flags().BoolVar(&dataURI, "data-uri", false, "print the result as a data:image/jpeg;base64 URI")
	cmd.Flags().BoolVar(&verify, "verify", false, "re-read the output with an independent EXIF decoder")
	cmd.Flags().StringVar(&catalogPath, "catalog", root.cfg.CatalogPath, "SQLite catalog to record the write in (empty disables)")
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func newInspectCmd(root *Root) *cobra.Command {
	var (
		asJSON   bool
		segments bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [flags] <image>",
		Short: "Show EXIF metadata and GPS position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			norm, err := root.normalize("inspect", args)
			if err != nil {
				return err
			}
			img, err := loadJPEG(norm[0])
			if err != nil {
				return err
			}
			report, err := geotag.Inspect(img)
			if err != nil {
				logging.LogOperationError(root.log, "inspect", norm[0], err)
				return err
			}
			if !segments {
				report.Segments = nil
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), norm[0], report, segments)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON (includes every tag)")
	cmd.Flags().BoolVar(&segments, "segments", false, "list JPEG marker segments")

	return cmd
}

func newLocateCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <image>",
		Short: "Print the stored GPS position as decimal degrees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			norm, err := root.normalize("locate", args)
			if err != nil {
				return err
			}
			img, err := loadJPEG(norm[0])
			if err != nil {
				return err
			}
			lat, lon, err := geotag.Locate(img)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.8f %.8f\n", lat, lon)
			return nil
		},
	}
}

func newStripCmd(root *Root) *cobra.Command {
	var (
		output string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "strip [flags] <image> [all]",
		Short: "Remove the GPS position from an image",
		Long: `Remove the GPS directory from the image's EXIF segment, keeping all other
metadata. With --all (or a truthy second argument) the whole EXIF segment
is dropped.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			norm, err := root.normalize("strip", args)
			if err != nil {
				return err
			}
			path := norm[0]
			img, err := loadJPEG(path)
			if err != nil {
				return err
			}
			var out []byte
			if all || norm[1] == "true" {
				out, err = geotag.StripAll(img)
			} else {
				out, err = geotag.StripGPS(img)
			}
			if err != nil {
				logging.LogOperationError(root.log, "strip", path, err)
				return err
			}
			dest := output
			if dest == "" {
				dest = defaultOutput(root.cfg.TempDir, path)
			}
			if err := geotag.WriteFile(dest, out, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes removed)\n", dest, len(img)-len(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path")
	cmd.Flags().BoolVar(&all, "all", false, "remove the entire EXIF segment")

	return cmd
}

func newServeCmd(root *Root) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve the geotag API:

  GET  /healthz
  POST /v1/geotag?lat=&lon=[&altitude=][&time=RFC3339][&format=datauri]
  POST /v1/inspect
  POST /v1/strip
  GET  /v1/history?limit=`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := server.Options{
				Logger:         root.log,
				MaxUploadBytes: root.cfg.MaxUploadBytes,
				AllowedOrigins: root.cfg.AllowedOrigins,
			}
			store, err := root.openCatalog(root.cfg.CatalogPath)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
				opts.Catalog = store
			}

			root.log.Info("starting server",
				"addr", addr,
				"catalog", root.cfg.CatalogPath,
				"max_upload_bytes", root.cfg.MaxUploadBytes,
			)
			return server.New(opts).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", root.cfg.Addr, "listen address")

	return cmd
}

func newHistoryCmd(root *Root) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded geotag writes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := root.openCatalog(root.cfg.CatalogPath)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("catalog disabled: set EXIFGPS_CATALOG")
			}
			defer store.Close()
			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tLAT\tLON\tSOURCE\tOUTPUT")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%.7f\t%.7f\t%s\t%s\n",
					e.ID[:8], e.CreatedAt.Local().Format(time.DateTime), e.Latitude, e.Longitude, e.Source, e.Output)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultLimit, "maximum entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")

	return cmd
}

func newShellCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "shell [image]",
		Short: "Interactive geotagging session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh := NewShell(root, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if len(args) == 1 {
				if err := sh.Open(args[0]); err != nil {
					return err
				}
			}
			return sh.Run(cmd.Context())
		},
	}
}

func newVersionCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "exifgps %s\n", Version)
		},
	}
}

func newUpdateCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Check GitHub for a newer release and install it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := Updater{Out: cmd.OutOrStdout()}
			return u.CheckForUpdates(cmd.Context())
		},
	}
}
