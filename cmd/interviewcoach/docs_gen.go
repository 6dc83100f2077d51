package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	cobraDoc "github.com/spf13/cobra/doc"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/config"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

func newDocsCommand(rootFactory func() *cobra.Command) *cobra.Command {
	docsRoot := &cobra.Command{
		Use:    "docs",
		Short:  "Internal docs maintenance commands",
		Hidden: true,
	}

	var (
		outputDir string
		checkOnly bool
	)
	gen := &cobra.Command{
		Use:   "generate",
		Short: "Generate reference docs for the CLI, config keys and topic catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(outputDir) == "" {
				return fmt.Errorf("--output must not be empty")
			}
			return generateDocumentation(rootFactory, outputDir, checkOnly)
		},
	}
	gen.Flags().StringVar(&outputDir, "output", "docs", "Docs directory root")
	gen.Flags().BoolVar(&checkOnly, "check", false, "Fail if generated docs are out of date")

	docsRoot.AddCommand(gen)
	return docsRoot
}

// generateDocumentation renders into a temp dir first so --check can diff
// against the committed tree without touching it.
func generateDocumentation(rootFactory func() *cobra.Command, outputDir string, checkOnly bool) error {
	tmpDir, err := os.MkdirTemp("", "interviewcoach-docs-*")
	if err != nil {
		return fmt.Errorf("create temp docs dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := writeReferences(rootFactory, tmpDir); err != nil {
		return err
	}
	generated, err := listFiles(tmpDir)
	if err != nil {
		return err
	}

	for _, rel := range generated {
		want, err := os.ReadFile(filepath.Join(tmpDir, rel))
		if err != nil {
			return err
		}
		dst := filepath.Join(outputDir, rel)
		if checkOnly {
			have, err := os.ReadFile(dst)
			if err != nil || !bytes.Equal(have, want) {
				return fmt.Errorf("docs out of date: %s; run `%s docs generate`", rel, appName)
			}
			continue
		}
		if err := writeTextFile(dst, string(want)); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	return nil
}

func writeReferences(rootFactory func() *cobra.Command, outDir string) error {
	cliRoot := rootFactory()
	disableAutoGenTag(cliRoot)

	cliDir := filepath.Join(outDir, "reference", "cli")
	if err := os.MkdirAll(cliDir, 0o755); err != nil {
		return fmt.Errorf("create cli docs dir: %w", err)
	}
	prepender := func(filename string) string {
		title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		return fmt.Sprintf("# %s\n\n", strings.ReplaceAll(title, "_", " "))
	}
	if err := cobraDoc.GenMarkdownTreeCustom(cliRoot, cliDir, prepender, func(name string) string { return name }); err != nil {
		return fmt.Errorf("generate cli markdown docs: %w", err)
	}

	manDir := filepath.Join(outDir, "reference", "man")
	if err := os.MkdirAll(manDir, 0o755); err != nil {
		return fmt.Errorf("create man docs dir: %w", err)
	}
	header := &cobraDoc.GenManHeader{Title: strings.ToUpper(appName), Section: "1", Source: appName}
	if err := cobraDoc.GenManTree(cliRoot, header, manDir); err != nil {
		return fmt.Errorf("generate man pages: %w", err)
	}

	configRef, err := configReferenceMarkdown()
	if err != nil {
		return err
	}
	if err := writeTextFile(filepath.Join(outDir, "reference", "config.md"), configRef); err != nil {
		return err
	}
	return writeTextFile(filepath.Join(outDir, "reference", "topics.md"), topicsReferenceMarkdown(interview.DefaultCatalog()))
}

func disableAutoGenTag(cmd *cobra.Command) {
	cmd.DisableAutoGenTag = true
	for _, child := range cmd.Commands() {
		disableAutoGenTag(child)
	}
}

func writeTextFile(path string, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	sort.Strings(files)
	return files, err
}

type configRow struct {
	Key     string
	Type    string
	Env     string
	Default string
}

func configReferenceMarkdown() (string, error) {
	data, err := json.Marshal(config.DefaultConfig())
	if err != nil {
		return "", err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return "", err
	}
	defaults := map[string]string{}
	flattenDefaults("", tree, defaults)

	var rows []configRow
	collectConfigRows(reflect.TypeOf(config.Config{}), "", defaults, &rows)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	var b strings.Builder
	b.WriteString("# Config Reference\n\n")
	b.WriteString("Every key can be set in `~/.interviewcoach/config.json` or through its environment variable.\n\n")
	b.WriteString("| Key | Type | Env Var | Default |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| `%s` | `%s` | `%s` | `%s` |\n", r.Key, r.Type, orDash(r.Env), orDash(escapePipes(r.Default)))
	}
	return b.String(), nil
}

func collectConfigRows(t reflect.Type, prefix string, defaults map[string]string, rows *[]configRow) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if !f.IsExported() || name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			collectConfigRows(f.Type, key, defaults, rows)
			continue
		}
		*rows = append(*rows, configRow{Key: key, Type: typeName(f.Type), Env: f.Tag.Get("env"), Default: defaults[key]})
	}
}

func flattenDefaults(prefix string, v any, out map[string]string) {
	if m, ok := v.(map[string]any); ok {
		for k, child := range m {
			if prefix != "" {
				k = prefix + "." + k
			}
			flattenDefaults(k, child, out)
		}
		return
	}
	encoded, _ := json.Marshal(v)
	out[prefix] = string(encoded)
}

func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int64:
		return "int"
	case reflect.Float64:
		return "float"
	case reflect.Slice:
		return "array<" + typeName(t.Elem()) + ">"
	default:
		return t.Kind().String()
	}
}

func topicsReferenceMarkdown(catalog *interview.Catalog) string {
	var b strings.Builder
	b.WriteString("# Interview Topics\n\n")
	for _, key := range catalog.TopicKeys() {
		t, _ := catalog.Topic(key)
		fmt.Fprintf(&b, "## %s (`%s`)\n\n", t.Name, key)
		for _, d := range []interview.Difficulty{interview.Beginner, interview.Intermediate, interview.Advanced} {
			if q, ok := catalog.OpeningQuestion(key, d); ok {
				fmt.Fprintf(&b, "- **%s**: %s\n", d, q)
			}
		}
		if len(t.KeyAreas) > 0 {
			fmt.Fprintf(&b, "\nKey areas: %s\n", strings.Join(t.KeyAreas, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func escapePipes(v string) string { return strings.ReplaceAll(v, "|", "\\|") }

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
