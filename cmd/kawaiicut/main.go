package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/kawaiicut/internal/compositor"
	"github.com/kikiluvv/kawaiicut/internal/config"
	"github.com/kikiluvv/kawaiicut/internal/export"
	"github.com/kikiluvv/kawaiicut/internal/ffmpeg"
	"github.com/kikiluvv/kawaiicut/internal/gui"
	"github.com/kikiluvv/kawaiicut/internal/i18n"
	"github.com/kikiluvv/kawaiicut/internal/logging"
	"github.com/kikiluvv/kawaiicut/internal/media"
	"github.com/kikiluvv/kawaiicut/internal/store"
	"github.com/kikiluvv/kawaiicut/internal/timeline"
	"github.com/kikiluvv/kawaiicut/pkg/util"
)

var (
	cfgFile string
	verbose bool

	projectName   string
	projectAspect string

	exportWidth  int
	exportHeight int
	exportFPS    float64
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kawaiicut",
	Short: "KawaiiCut - cute little video editor",
	Long:  "A track-based video editor: arrange clips on a timeline, preview the composite, and export through ffmpeg.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(configCmd)
}

func openLibrary(cfg *config.Config) (*store.Store, error) {
	if err := util.EnsureDir(cfg.DataDir); err != nil {
		return nil, err
	}
	return store.Open(cfg.LibraryPath(), log.Logger)
}

var editCmd = &cobra.Command{
	Use:   "edit [project id]",
	Short: "Open a project in the editor, or create a new one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		lib, err := openLibrary(cfg)
		if err != nil {
			return err
		}

		var project *timeline.Project
		if len(args) == 1 {
			project, err = lib.LoadProject(args[0])
			if err != nil {
				return err
			}
		} else {
			project = timeline.NewProject(projectName, projectAspect)
			if err := lib.SaveProject(project); err != nil {
				return err
			}
			log.Info().Str("project", project.Meta.ID).Msg("project created")
		}

		lang := cfg.Editor.Language
		if settings, err := lib.Settings(); err == nil && settings.Language != "" {
			lang = settings.Language
		}
		tr, err := i18n.New(lang)
		if err != nil {
			return err
		}

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		gui.NewEditor(cfg, project, lib, exec, tr, log.Logger).Run()
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [project id] [output file]",
	Short: "Render a project to a video file without opening the editor",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		lib, err := openLibrary(cfg)
		if err != nil {
			return err
		}
		project, err := lib.LoadProject(args[0])
		if err != nil {
			return err
		}

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		cache := media.NewCache(media.NewFFmpegLoader(exec), log.Logger)
		for _, asset := range project.Assets {
			cache.Acquire(asset)
			if err := cache.Resolve(cmd.Context(), asset.Src); err != nil {
				log.Warn().Err(err).Str("src", asset.Src).Msg("asset unavailable, rendering without it")
			}
		}

		comp := compositor.New(cache, log.Logger)
		exporter := export.New(comp, export.NewEncoder(exec), log.Logger)

		opts := export.Options{
			Output: util.UniquePath(args[1]),
			Width:  cfg.Export.Width,
			Height: cfg.Export.Height,
			FPS:    cfg.Export.FPS,
		}
		if exportWidth > 0 {
			opts.Width = exportWidth
		}
		if exportHeight > 0 {
			opts.Height = exportHeight
		}
		if exportFPS > 0 {
			opts.FPS = exportFPS
		}

		lastPct := -10
		opts.OnProgress = func(done, total int) {
			pct := done * 100 / total
			if pct/10 != lastPct/10 {
				lastPct = pct
				log.Info().Int("percent", pct).Msg("rendering")
			}
		}

		if err := exporter.Export(cmd.Context(), project, opts); err != nil {
			return err
		}

		log.Info().
			Str("output", opts.Output).
			Float64("duration", project.Duration).
			Msg("export complete")
		return nil
	},
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project library commands",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		lib, err := openLibrary(cfg)
		if err != nil {
			return err
		}
		metas, err := lib.ListProjects()
		if err != nil {
			return err
		}
		printProjects(metas)
		return nil
	},
}

var projectTrashCmd = &cobra.Command{
	Use:   "trash [project id]",
	Short: "Move a project to the trash, or list the trash",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		lib, err := openLibrary(cfg)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			metas, err := lib.ListTrash()
			if err != nil {
				return err
			}
			printProjects(metas)
			return nil
		}
		if err := lib.SoftDelete(args[0]); err != nil {
			return err
		}
		log.Info().Str("project", args[0]).Msg("moved to trash")
		return nil
	},
}

var projectRestoreCmd = &cobra.Command{
	Use:   "restore [project id]",
	Short: "Restore a project from the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		lib, err := openLibrary(cfg)
		if err != nil {
			return err
		}
		if err := lib.Restore(args[0]); err != nil {
			return err
		}
		log.Info().Str("project", args[0]).Msg("project restored")
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete [project id]",
	Short: "Delete a project permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		lib, err := openLibrary(cfg)
		if err != nil {
			return err
		}
		if err := lib.HardDelete(args[0]); err != nil {
			return err
		}
		log.Info().Str("project", args[0]).Msg("project deleted")
		return nil
	},
}

var projectEmptyTrashCmd = &cobra.Command{
	Use:   "empty-trash",
	Short: "Delete every trashed project permanently",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		lib, err := openLibrary(cfg)
		if err != nil {
			return err
		}
		if err := lib.EmptyTrash(); err != nil {
			return err
		}
		log.Info().Msg("trash emptied")
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func printProjects(metas []timeline.Metadata) {
	if len(metas) == 0 {
		fmt.Println("no projects")
		return
	}
	for _, m := range metas {
		fmt.Printf("%s  %-24s  %s  %s\n",
			m.ID, m.Name, m.AspectRatio, m.LastModified.Format("2006-01-02 15:04"))
	}
}

func init() {
	editCmd.Flags().StringVar(&projectName, "name", "Untitled", "name for a newly created project")
	editCmd.Flags().StringVar(&projectAspect, "aspect", "16:9", "aspect ratio for a newly created project")

	exportCmd.Flags().IntVar(&exportWidth, "width", 0, "output width (default from config)")
	exportCmd.Flags().IntVar(&exportHeight, "height", 0, "output height (default from config)")
	exportCmd.Flags().Float64Var(&exportFPS, "fps", 0, "output frame rate (default from config)")

	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectTrashCmd)
	projectCmd.AddCommand(projectRestoreCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectEmptyTrashCmd)
	configCmd.AddCommand(configShowCmd)
}
