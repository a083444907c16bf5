package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/hurttlocker/questlog/internal/extract"
	"github.com/hurttlocker/questlog/internal/store"
)

var (
	kindColors = map[extract.Kind]*color.Color{
		extract.KindNPC:      color.New(color.FgCyan),
		extract.KindLocation: color.New(color.FgGreen),
		extract.KindItem:     color.New(color.FgYellow),
		extract.KindQuest:    color.New(color.FgMagenta),
	}
	completeColor = color.New(color.FgGreen)
	draftColor    = color.New(color.FgYellow)
)

func runList(args []string, out io.Writer) error {
	opts := store.ListOpts{}
	asJSON := false
	for i := 0; i < len(args); i++ {
		if v, next, ok := flagValue(args, i, "--kind"); ok {
			kind, err := extract.ParseKind(v)
			if err != nil || kind == extract.KindSessionSummary {
				return fmt.Errorf("invalid --kind %q (npc, location, item, quest)", v)
			}
			opts.Kind, i = kind, next
			continue
		}
		if v, next, ok := flagValue(args, i, "--session"); ok {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid --session %q", v)
			}
			opts.Session, opts.HasSession, i = n, true, next
			continue
		}
		if v, next, ok := flagValue(args, i, "--limit"); ok {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid --limit %q", v)
			}
			opts.Limit, i = n, next
			continue
		}
		switch args[i] {
		case "--json":
			asJSON = true
		default:
			return fmt.Errorf("unknown argument: %s", args[i])
		}
	}

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	entities, err := st.ListEntities(context.Background(), opts)
	if err != nil {
		return err
	}
	if asJSON {
		if entities == nil {
			entities = []extract.Entity{}
		}
		return writeJSON(out, entities)
	}
	if len(entities) == 0 {
		fmt.Fprintln(out, "No entities found.")
		return nil
	}
	for _, e := range entities {
		fmt.Fprintln(out, formatEntityLine(e))
	}
	return nil
}

func runShow(args []string, out io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: questlog show <kind> <title>")
	}
	kind, err := extract.ParseKind(args[0])
	if err != nil {
		return err
	}
	title := strings.Join(args[1:], " ")

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	e, err := st.GetEntity(context.Background(), kind, title)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no %s named %q", kind, title)
	}
	if err != nil {
		return err
	}
	return writeJSON(out, e)
}

func runSessions(args []string, out io.Writer) error {
	asJSON := false
	for _, arg := range args {
		if arg != "--json" {
			return fmt.Errorf("unknown argument: %s", arg)
		}
		asJSON = true
	}

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions(context.Background())
	if err != nil {
		return err
	}
	if asJSON {
		if sessions == nil {
			sessions = []*extract.SessionSummary{}
		}
		return writeJSON(out, sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions imported yet.")
		return nil
	}
	for _, ss := range sessions {
		status := draftColor
		if ss.Status == "complete" {
			status = completeColor
		}
		fmt.Fprintf(out, "Session %-4d %s %s\n", ss.SessionNumber, status.Sprintf("%-9s", ss.Status), ss.Title)
		if ss.BriefSynopsis != "" {
			fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(ss.BriefSynopsis, "\n", " "))
		}
	}
	return nil
}

func runStats(args []string, out io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown argument: %s", args[0])
	}
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(context.Background())
	if err != nil {
		return err
	}
	return writeJSON(out, stats)
}

func runVacuum(args []string, out io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown argument: %s", args[0])
	}
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	before, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	if err := st.Vacuum(ctx); err != nil {
		return fmt.Errorf("vacuuming catalog: %w", err)
	}
	after, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Vacuumed %s: %d -> %d bytes\n", cfg.DBPath.Value, before.DBSizeBytes, after.DBSizeBytes)
	return nil
}

// formatEntityLine renders one entity as "kind  title  [detail]  sessions".
func formatEntityLine(e extract.Entity) string {
	h := e.Header()
	var detail string
	switch v := e.(type) {
	case *extract.NPC:
		detail = v.Role
	case *extract.Location:
		detail = string(v.Type)
	case *extract.Item:
		detail = string(v.Type)
	case *extract.Quest:
		detail = v.Status
	}

	label := fmt.Sprintf("%-9s", h.Kind)
	if c, ok := kindColors[h.Kind]; ok {
		label = c.Sprint(label)
	}
	line := label + " " + h.Title
	if detail != "" {
		line += fmt.Sprintf(" (%s)", detail)
	}
	if len(h.SourceSessions) > 0 {
		nums := make([]string, len(h.SourceSessions))
		for i, n := range h.SourceSessions {
			nums[i] = strconv.Itoa(n)
		}
		line += "  sessions " + strings.Join(nums, ",")
	}
	return line
}
