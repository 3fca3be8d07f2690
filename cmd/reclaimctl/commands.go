package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/erazemk/reclaim/internal/client"
	"github.com/erazemk/reclaim/internal/filter"
	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/session"
	"github.com/erazemk/reclaim/internal/taxonomy"
	"github.com/erazemk/reclaim/internal/validate"
)

func newFlags(name, args string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stdout, "Usage: reclaimctl %s %s\n\nFlags:\n%s", name, args, flags.FlagUsages())
	}
	return flags
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	flags := newFlags("login", "[flags]")
	email := flags.StringP("email", "e", "", "account email")
	passwordFile := flags.String("password-file", "", `read the password from this file ("-" or empty prompts)`)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.guard(session.RouteLogin); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}

	password, err := readPassword(*passwordFile, "Password: ")
	if err != nil {
		return err
	}

	u, err := a.client.Login(ctx, *email, password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%s)\n", displayName(u), strings.Join(u.Roles, ", "))
	return nil
}

// readPassword reads a password from path, or from the terminal with echo
// disabled when path is empty or "-". Trailing newlines are stripped.
func readPassword(path, prompt string) (string, error) {
	if path != "" && path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for the password prompt (use --password-file)")
	}
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(data), nil
}

func displayName(u session.User) string {
	if u.Name != "" {
		return fmt.Sprintf("%s <%s>", u.Name, u.Email)
	}
	return u.Email
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := newFlags("logout", "").Parse(args); err != nil {
		return err
	}
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	if err := newFlags("whoami", "").Parse(args); err != nil {
		return err
	}
	if err := a.guard(session.RouteSettings); err != nil {
		return err
	}
	u, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", displayName(u), strings.Join(u.Roles, ", "))
	return nil
}

func cmdPasswd(ctx context.Context, a *app, args []string) error {
	if err := newFlags("passwd", "").Parse(args); err != nil {
		return err
	}
	if err := a.guard(session.RouteSettings); err != nil {
		return err
	}

	current, err := readPassword("", "Current password: ")
	if err != nil {
		return err
	}
	next, err := readPassword("", "New password: ")
	if err != nil {
		return err
	}
	again, err := readPassword("", "Repeat new password: ")
	if err != nil {
		return err
	}
	if next != again {
		return errors.New("passwords do not match")
	}
	if err := model.ValidatePassword(next); err != nil {
		return err
	}

	if err := a.client.ChangePassword(ctx, current, next); err != nil {
		return err
	}
	fmt.Println("Password changed")
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	flags := newFlags("register", "[flags]")
	var u client.NewUser
	flags.StringVar(&u.Email, "email", "", "account email")
	flags.StringVar(&u.Name, "name", "", "display name")
	flags.StringVar(&u.Role, "role", model.RoleUser, "role: admin, manager or user")
	passwordFile := flags.String("password-file", "", `read the password from this file ("-" or empty prompts)`)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.guard(session.RouteSettings); err != nil {
		return err
	}
	if u.Email == "" {
		return errors.New("--email is required")
	}
	if !model.ValidRole(u.Role) {
		return fmt.Errorf("unknown role %q", u.Role)
	}

	password, err := readPassword(*passwordFile, "Password for the new account: ")
	if err != nil {
		return err
	}
	u.Password = password

	created, err := a.client.Register(ctx, u)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s (id %d, %s)\n", created.Email, created.ID, created.Role)
	return nil
}

func cmdList(ctx context.Context, a *app, args []string) error {
	flags := newFlags("list", "[flags]")
	var opts client.ListOptions
	flags.StringVarP(&opts.Filter.Query, "query", "q", "", "free-text search")
	flags.StringSliceVar(&opts.Filter.Categories, "category", nil, "category (repeatable)")
	flags.StringSliceVarP(&opts.Filter.MaterialTypes, "type", "t", nil, "material type (repeatable)")
	flags.StringSliceVar(&opts.Filter.Conditions, "condition", nil, "condition (repeatable)")
	flags.IntVar(&opts.Page, "page", 0, "zero-based page number")
	flags.IntVar(&opts.Size, "size", 0, "page size (0 lists everything)")
	local := flags.Bool("local", false, "fetch everything and filter on this machine")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.guard(session.RouteMaterials); err != nil {
		return err
	}

	var records []model.MaterialRecord
	var err error
	if *local {
		state := opts.Filter
		records, err = a.client.List(ctx, client.ListOptions{})
		records = filter.Run(records, state)
	} else {
		records, err = a.client.List(ctx, opts)
	}
	if err != nil {
		return err
	}

	printRecords(os.Stdout, records)
	return nil
}

func printRecords(out io.Writer, records []model.MaterialRecord) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tCATEGORY\tCONDITION\tSIZE (W×H×D)\tPICTURES")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.Name, taxonomy.TypeLabel(r.MaterialType()), r.Category, r.Condition,
			dimensions(r), len(r.Pictures))
	}
	w.Flush()
	fmt.Fprintf(out, "%d material(s)\n", len(records))
}

func dimensions(r model.MaterialRecord) string {
	s := formatNumber(r.Width) + "×" + formatNumber(r.Height)
	if r.Depth != nil {
		s += "×" + formatNumber(*r.Depth)
	}
	return s
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

// oneID parses the single positional material id of a command.
func oneID(flags *pflag.FlagSet) (int64, error) {
	if flags.NArg() != 1 {
		flags.Usage()
		return 0, errors.New("expected one material id")
	}
	return parseID(flags.Arg(0), "material")
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	flags := newFlags("show", "<id>")
	if err := flags.Parse(args); err != nil {
		return err
	}
	id, err := oneID(flags)
	if err != nil {
		return err
	}
	if err := a.guard(fmt.Sprintf("%s/%d", session.RouteMaterials, id)); err != nil {
		return err
	}

	r, err := a.client.Get(ctx, id)
	if err != nil {
		return err
	}
	printRecord(os.Stdout, r)
	return nil
}

func printRecord(out io.Writer, r model.MaterialRecord) {
	d := r.Draft()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%d\n", r.ID)
	for _, f := range taxonomy.Fields() {
		text := d.Text(f)
		if text == "" {
			continue
		}
		if f == taxonomy.FieldMaterialType {
			text = taxonomy.TypeLabel(r.MaterialType())
		} else if opt := optionLabel(r.MaterialType(), f, text); opt != "" {
			text = opt
		}
		fmt.Fprintf(w, "%s\t%s\n", taxonomy.Label(f), text)
	}
	if !r.DateAdded.IsZero() {
		fmt.Fprintf(w, "Added\t%s (%s)\n", r.DateAdded.Format(time.DateOnly), humanize.Time(r.DateAdded))
	}
	for _, p := range r.Pictures {
		primary := ""
		if p.IsPrimary {
			primary = " (primary)"
		}
		fmt.Fprintf(w, "Picture\t%d %s, %s%s\n", p.ID, p.FileName, humanize.Bytes(uint64(p.FileSize)), primary)
	}
	w.Flush()
}

func optionLabel(t taxonomy.MaterialType, f taxonomy.Field, value string) string {
	for _, o := range taxonomy.Options(t, f) {
		if o.Value == value {
			return o.Label
		}
	}
	return ""
}

// parseAssignments applies field=value pairs to d. Fields may be named by
// their wire name or label, case-insensitively. The returned errors are keyed
// by field.
func parseAssignments(d *model.Draft, sets []string, check func(*model.Draft, taxonomy.Field, string) string) (validate.Errors, error) {
	errs := validate.Errors{}
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("expected field=value, got %q", s)
		}
		f, ok := lookupField(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q (see reclaimctl taxonomy)", name)
		}
		if msg := check(d, f, raw); msg != "" {
			errs[f] = msg
		}
	}
	return errs, nil
}

func lookupField(name string) (taxonomy.Field, bool) {
	name = strings.TrimSpace(name)
	for _, f := range taxonomy.Fields() {
		if strings.EqualFold(string(f), name) || strings.EqualFold(taxonomy.Label(f), name) {
			return f, true
		}
	}
	return "", false
}

// parseOnly reports format errors without checking completeness.
func parseOnly(d *model.Draft, f taxonomy.Field, raw string) string {
	if err := d.Set(f, raw); err != nil {
		return validate.ParseMessage(f, err)
	}
	return ""
}

func fieldError(errs validate.Errors) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid material: %w", errs)
}

func uploads(paths []string) ([]client.Upload, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	out := make([]client.Upload, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("opening picture: %w", err)
		}
		files = append(files, f)
		out = append(out, client.Upload{Filename: filepath.Base(p), Content: f})
	}
	return out, closeAll, nil
}

func cmdCreate(ctx context.Context, a *app, args []string) error {
	flags := newFlags("create", "--set field=value ... [--picture file ...]")
	sets := flags.StringArrayP("set", "s", nil, "field=value (repeatable)")
	pictures := flags.StringArrayP("picture", "p", nil, "picture file (repeatable, the first becomes primary)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.guard(session.RouteMaterials); err != nil {
		return err
	}

	var d model.Draft
	errs, err := parseAssignments(&d, *sets, validate.Change)
	if err != nil {
		return err
	}
	for f, msg := range validate.ValidateAll(d) {
		if _, ok := errs[f]; !ok {
			errs[f] = msg
		}
	}
	if err := fieldError(errs); err != nil {
		return err
	}

	var created model.MaterialRecord
	if len(*pictures) > 0 {
		files, closeAll, err := uploads(*pictures)
		if err != nil {
			return err
		}
		defer closeAll()
		created, err = a.client.CreateWithPictures(ctx, d, files)
		if err != nil {
			return err
		}
	} else {
		created, err = a.client.Create(ctx, d)
		if err != nil {
			return err
		}
	}

	fmt.Printf("Created material %d\n", created.ID)
	return nil
}

func cmdUpdate(ctx context.Context, a *app, args []string) error {
	flags := newFlags("update", "<id> --set field=value ...")
	sets := flags.StringArrayP("set", "s", nil, "field=value (repeatable)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	id, err := oneID(flags)
	if err != nil {
		return err
	}
	if err := a.guard(fmt.Sprintf("%s/%d", session.RouteMaterials, id)); err != nil {
		return err
	}
	if len(*sets) == 0 {
		return errors.New("nothing to change, pass --set field=value")
	}

	var patch model.Draft
	errs, err := parseAssignments(&patch, *sets, parseOnly)
	if err != nil {
		return err
	}
	if err := fieldError(errs); err != nil {
		return err
	}

	updated, err := a.client.Update(ctx, id, patch)
	if err != nil {
		return err
	}
	printRecord(os.Stdout, updated)
	return nil
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	flags := newFlags("delete", "<id>")
	if err := flags.Parse(args); err != nil {
		return err
	}
	id, err := oneID(flags)
	if err != nil {
		return err
	}
	if err := a.guard(fmt.Sprintf("%s/%d", session.RouteMaterials, id)); err != nil {
		return err
	}
	if err := a.client.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted material %d\n", id)
	return nil
}

func cmdStats(ctx context.Context, a *app, args []string) error {
	if err := newFlags("stats", "").Parse(args); err != nil {
		return err
	}
	if err := a.guard(session.RouteHome); err != nil {
		return err
	}
	s, err := a.client.Stats(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Total\t%d\n", s.TotalCount)
	fmt.Fprintf(w, "Added in the last %d days\t%d\n", model.RecentWindowDays, s.RecentAdditionsCount)
	printCounts(w, "Type", s.TypeCounts)
	printCounts(w, "Category", s.CategoryCounts)
	printCounts(w, "Condition", s.ConditionCounts)
	return w.Flush()
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := k
		if title == "Type" {
			label = taxonomy.TypeLabel(taxonomy.MaterialType(k))
		}
		fmt.Fprintf(w, "%s: %s\t%d\n", title, label, counts[k])
	}
}

func cmdActivity(ctx context.Context, a *app, args []string) error {
	flags := newFlags("activity", "[material id]")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.guard(session.RouteHome); err != nil {
		return err
	}

	var entries []model.Activity
	var err error
	switch flags.NArg() {
	case 0:
		entries, err = a.client.RecentActivity(ctx)
	case 1:
		id, perr := parseID(flags.Arg(0), "material")
		if perr != nil {
			return perr
		}
		entries, err = a.client.MaterialActivity(ctx, id)
	default:
		flags.Usage()
		return errors.New("expected at most one material id")
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tACTION\tMATERIAL\tBY\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s (%d)\t%s\t%s\n",
			humanize.Time(e.Timestamp), e.Action, e.MaterialName, e.MaterialID, e.UserName, e.Details)
	}
	return w.Flush()
}

func cmdImport(ctx context.Context, a *app, args []string) error {
	flags := newFlags("import", "<file.xlsx>")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return errors.New("expected one file")
	}
	if err := a.guard(session.RouteImport); err != nil {
		return err
	}

	path := flags.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	summary, err := a.client.Import(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d material(s), %d row(s) failed\n", summary.Created, summary.Failed)
	for _, rowErr := range summary.Errors {
		fields := make([]string, 0, len(rowErr.Fields))
		for name := range rowErr.Fields {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		for _, name := range fields {
			fmt.Printf("  row %d: %s\n", rowErr.Row, rowErr.Fields[name])
		}
	}
	return nil
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	return download(ctx, a, "export", args, "materials-"+time.Now().Format(time.DateOnly)+".xlsx", a.client.Export)
}

func cmdTemplate(ctx context.Context, a *app, args []string) error {
	return download(ctx, a, "template", args, "materials-template.xlsx", a.client.Template)
}

func download(ctx context.Context, a *app, name string, args []string, def string, fetch func(context.Context) ([]byte, error)) error {
	flags := newFlags(name, "[flags]")
	output := flags.StringP("output", "o", def, `output file ("-" writes to stdout)`)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.guard(session.RouteExcel); err != nil {
		return err
	}

	data, err := fetch(ctx)
	if err != nil {
		return err
	}
	return writeOutput(*output, data)
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := io.Copy(os.Stdout, bytes.NewReader(data))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%s)\n", path, humanize.Bytes(uint64(len(data))))
	return nil
}

func cmdPicture(ctx context.Context, a *app, args []string) error {
	flags := newFlags("picture", "add <id> <file>... | remove <id> <picture id> | primary <id> <picture id> | get <picture id>")
	output := flags.StringP("output", "o", "", "output file for get")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() < 2 {
		flags.Usage()
		return errors.New("missing arguments")
	}

	action, rest := flags.Arg(0), flags.Args()[1:]
	if action == "get" {
		if err := a.guard(session.RouteMaterials); err != nil {
			return err
		}
		pictureID, err := parseID(rest[0], "picture")
		if err != nil {
			return err
		}
		data, _, err := a.client.Picture(ctx, pictureID)
		if err != nil {
			return err
		}
		path := *output
		if path == "" {
			path = fmt.Sprintf("picture-%d.jpg", pictureID)
		}
		return writeOutput(path, data)
	}

	id, err := parseID(rest[0], "material")
	if err != nil {
		return err
	}
	if err := a.guard(fmt.Sprintf("%s/%d", session.RouteMaterials, id)); err != nil {
		return err
	}
	if len(rest) < 2 {
		flags.Usage()
		return errors.New("missing arguments")
	}

	switch action {
	case "add":
		files, closeAll, err := uploads(rest[1:])
		if err != nil {
			return err
		}
		defer closeAll()
		all, err := a.client.AddPictures(ctx, id, files)
		if err != nil {
			return err
		}
		fmt.Printf("Material %d now has %d picture(s)\n", id, len(all))
	case "remove":
		pictureID, err := parseID(rest[1], "picture")
		if err != nil {
			return err
		}
		if err := a.client.RemovePicture(ctx, id, pictureID); err != nil {
			return err
		}
		fmt.Printf("Removed picture %d\n", pictureID)
	case "primary":
		pictureID, err := parseID(rest[1], "picture")
		if err != nil {
			return err
		}
		if err := a.client.SetPrimaryPicture(ctx, id, pictureID); err != nil {
			return err
		}
		fmt.Printf("Picture %d is now primary\n", pictureID)
	default:
		flags.Usage()
		return fmt.Errorf("unknown picture action %q", action)
	}
	return nil
}

func cmdTaxonomy(_ context.Context, _ *app, args []string) error {
	if err := newFlags("taxonomy", "").Parse(args); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	printOptions(w, "Categories", taxonomy.Categories())
	printOptions(w, "Conditions", taxonomy.Conditions())
	fmt.Fprintf(w, "Common fields\t%s\n", fieldList(taxonomy.CommonRequired()))

	for _, t := range taxonomy.MaterialTypes() {
		mt := taxonomy.MaterialType(t.Value)
		s := taxonomy.Lookup(mt)
		fmt.Fprintf(w, "\n%s (%s)\n", t.Label, t.Value)
		fmt.Fprintf(w, "  required\t%s\n", fieldList(s.Required))
		for _, c := range s.Conditional {
			fmt.Fprintf(w, "  required when %s\t%s\n", c.When, c.Field)
		}
		if len(s.Optional) > 0 {
			fmt.Fprintf(w, "  optional\t%s\n", fieldList(s.Optional))
		}
		for _, f := range taxonomy.Fields() {
			if !s.Has(f) {
				continue
			}
			if opts := taxonomy.Options(mt, f); opts != nil {
				fmt.Fprintf(w, "  %s\t%s\n", f, optionList(opts))
			}
		}
	}
	return w.Flush()
}

func printOptions(w io.Writer, title string, opts []taxonomy.Option) {
	fmt.Fprintf(w, "%s\t%s\n", title, optionList(opts))
}

func optionList(opts []taxonomy.Option) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = o.Value
	}
	return strings.Join(parts, ", ")
}

func fieldList(fields []taxonomy.Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
