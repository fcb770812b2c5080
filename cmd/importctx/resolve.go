package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrsinham/importctx/internal/backup"
	"github.com/mrsinham/importctx/internal/metrics"
	"github.com/mrsinham/importctx/internal/model"
	"github.com/mrsinham/importctx/internal/registry"
	"github.com/mrsinham/importctx/internal/resolver"
	"github.com/mrsinham/importctx/internal/scan"
	"github.com/mrsinham/importctx/internal/session"
)

type resolveFlags struct {
	scanFile     string
	serial       string
	modelName    string
	manufacturer string
	selections   []string
	resume       bool
	showMetrics  bool
}

// selection is one --select level=id flag.
type selection struct {
	level model.Level
	id    model.ID
}

func parseSelection(s string) (selection, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return selection{}, eris.Errorf("select %q: want level=id", s)
	}
	level, err := model.ParseLevel(name)
	if err != nil {
		return selection{}, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return selection{}, eris.Errorf("select %q: id must be a positive integer", s)
	}
	return selection{level: level, id: model.ID(id)}, nil
}

func newResolveCmd(g *globalFlags) *cobra.Command {
	f := &resolveFlags{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the import context of a scan against a registry",
		Example: `  importctx resolve --scan IM000001 --select study=1 --select subject=601
  importctx resolve --serial 12345 --model Prisma --manufacturer Siemens --resume`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd.Context(), cmd.OutOrStdout(), g, f)
		},
	}
	cmd.Flags().StringVar(&f.scanFile, "scan", "", "DICOM file to read the fingerprint and patient fields from")
	cmd.Flags().StringVar(&f.serial, "serial", "", "scanner serial number, when no scan file is given")
	cmd.Flags().StringVar(&f.modelName, "model", "", "scanner model name, when no scan file is given")
	cmd.Flags().StringVar(&f.manufacturer, "manufacturer", "", "scanner manufacturer, when no scan file is given")
	cmd.Flags().StringArrayVar(&f.selections, "select", nil, "select a level: level=id (repeatable, applied in order)")
	cmd.Flags().BoolVar(&f.resume, "resume", false, "replay the context saved in the backup file")
	cmd.Flags().BoolVar(&f.showMetrics, "metrics", false, "print cascade counters")
	return cmd
}

func runResolve(ctx context.Context, w io.Writer, g *globalFlags, f *resolveFlags) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if cfg.RegistryPath == "" {
		return eris.New("no registry configured, set registry_path or IMPORTCTX_REGISTRY_PATH")
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return eris.Wrap(err, "build logger")
	}
	defer func() { _ = logger.Sync() }()

	selections := make([]selection, 0, len(f.selections))
	for _, s := range f.selections {
		sel, err := parseSelection(s)
		if err != nil {
			return err
		}
		selections = append(selections, sel)
	}

	info, err := scanInfo(f)
	if err != nil {
		return err
	}

	reg, err := registry.Load(cfg.RegistryPath, registry.WithLogger(logger.Named("registry")))
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	rec, err := metrics.New(promReg)
	if err != nil {
		return err
	}

	settings := session.Settings{
		Mode:         cfg.ImportMode(),
		Scan:         info,
		UseStudyCard: cfg.StudyCardEnabled(info.Modality),
		FillSole:     cfg.FillSoleCandidates,
		Principal:    resolver.Principal{Admin: cfg.Principal.Admin, Expert: cfg.Principal.Expert},
	}
	if f.resume {
		if _, err := os.Stat(cfg.BackupPath); errors.Is(err, fs.ErrNotExist) {
			logger.Info("no backup to resume from", zap.String("path", cfg.BackupPath))
		} else {
			prev, err := backup.LoadFile(cfg.BackupPath)
			if err != nil {
				return err
			}
			settings.Previous = &prev
		}
	}

	sess, out, err := session.Open(ctx, reg, settings, session.WithLogger(logger), session.WithMetrics(rec))
	if err != nil {
		return err
	}
	defer sess.Close()
	printNotices(w, out)

	for _, sel := range selections {
		out, err = sess.Resolver().Select(ctx, sel.level, sel.id)
		if err != nil {
			return eris.Wrapf(err, "select %s=%d", sel.level, sel.id)
		}
		printNotices(w, out)
	}

	if err := sess.Store().SaveFile(cfg.BackupPath); err != nil {
		return err
	}

	printContext(w, sess.Resolver())
	if studyID := sess.Resolver().Context().StudyID; studyID != 0 {
		admin, err := sess.Resolver().AdminOfStudy(ctx, studyID)
		if err != nil {
			logger.Warn("could not read study rights", zap.Error(err))
		}
		fmt.Fprintf(w, "Study admin: %t\n", admin)
	}
	if sess.Resolver().Context().StudyCardID != 0 {
		for _, warn := range sess.Resolver().CardWarnings() {
			fmt.Fprintf(w, "warning: %s\n", warn.Message)
		}
	}

	if _, err := sess.Proceed(); err != nil {
		fmt.Fprintf(w, "\nContext incomplete: %v\n", err)
	} else {
		fmt.Fprintln(w, "\n✓ Context complete, ready to import")
	}
	fmt.Fprintf(w, "  Backup: %s\n", cfg.BackupPath)

	if f.showMetrics {
		return printMetrics(w, promReg)
	}
	return nil
}

func scanInfo(f *resolveFlags) (scan.Info, error) {
	if f.scanFile != "" {
		return scan.FromFile(f.scanFile)
	}
	var info scan.Info
	info.Fingerprint = model.EquipmentFingerprint{
		SerialNumber:     f.serial,
		ModelName:        f.modelName,
		ManufacturerName: f.manufacturer,
	}
	return info, nil
}

func printNotices(w io.Writer, out resolver.Outcome) {
	for _, n := range out.Notices {
		fmt.Fprintf(w, "notice: %s\n", n.Message())
	}
}

func printContext(w io.Writer, r *resolver.Resolver) {
	c := r.Context()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "LEVEL\tSELECTED\tCANDIDATES\n")
	for _, level := range model.Levels() {
		if level == model.LevelStudyCard && !c.UseStudyCard {
			continue
		}
		selected := "-"
		parts := make([]string, 0)
		for _, cand := range r.Candidates(level) {
			label := fmt.Sprintf("%d %s", cand.ID, cand.Label)
			if cand.Compat.String() != "neutral" {
				label = fmt.Sprintf("%s (%s)", label, cand.Compat)
			}
			if cand.ID == c.Get(level) {
				selected = cand.Label
				label = "*" + label
			}
			parts = append(parts, label)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", level, selected, strings.Join(parts, ", "))
	}
	_ = tw.Flush()
}

func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return eris.Wrap(err, "gather metrics")
	}
	fmt.Fprintln(w)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			fmt.Fprintf(w, "%s{%s} %g\n", f.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
	return nil
}
