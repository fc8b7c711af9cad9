package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"nihonjindes-editor/internal/model"
	"nihonjindes-editor/internal/store"

	"github.com/spf13/cobra"
)

func newCheckCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [course.json]",
		Short: "Validate a course file without opening the editor",
		Long: `Loads the file, verifies that structural repair is idempotent, exercises
the mutation surface on a throwaway copy and round-trips the canonical
encoding through an atomic write. The file itself is never modified.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.Path
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				path = DefaultCoursePath
			}
			issues := runChecks(cmd, path)
			if issues > 0 {
				return fmt.Errorf("check failed with %d issue(s)", issues)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	return cmd
}

func runChecks(cmd *cobra.Command, path string) int {
	out := cmd.OutOrStdout()
	issues := 0
	fail := func(format string, args ...any) {
		issues++
		fmt.Fprintf(out, "FAIL: "+format+"\n", args...)
	}

	doc, err := store.Load(path)
	if err != nil {
		fail("%v", err)
		return issues
	}
	fmt.Fprintf(out, "loaded %s: %d categories\n", path, doc.NumCategories())

	// Repair must be idempotent: a second pass may not change the encoding.
	first, err := store.Encode(doc)
	if err != nil {
		fail("encode: %v", err)
		return issues
	}
	doc.Normalize()
	second, err := store.Encode(doc)
	if err != nil {
		fail("encode after re-normalize: %v", err)
		return issues
	}
	if !bytes.Equal(first, second) {
		fail("normalize is not idempotent for this file")
	}

	// Duplicate slugs make tree selection fall back to positions.
	for _, k := range doc.KeyCollisions() {
		fmt.Fprintf(out, "warn: duplicate key %s\n", k)
	}

	// Exercise the mutation surface on a copy.
	work := doc.Clone()
	catRef := work.AddCategory("check", "check")
	lessonRef, err := work.AddLesson(catRef.Cat, "check", "check")
	if err != nil {
		fail("add lesson: %v", err)
		return issues
	}
	itemRef, err := work.AddItem(lessonRef.Cat, lessonRef.Lesson, "", "", "")
	if err != nil {
		fail("add item: %v", err)
		return issues
	}
	if node, err := work.Get(itemRef); err != nil {
		fail("resolve new item: %v", err)
	} else if img, _ := node["image"].(string); img != model.DefaultItemImage {
		fail("blank image not defaulted, got %q", img)
	}
	if _, err := work.Delete(catRef); err != nil {
		fail("delete: %v", err)
	}

	// Canonical encoding must survive an atomic write round trip.
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("nihonjindes-check-%d.json", os.Getpid()))
	defer os.Remove(tmp)
	if err := store.WriteFileAtomic(tmp, first, 0o600); err != nil {
		fail("atomic write: %v", err)
		return issues
	}
	reread, err := store.Load(tmp)
	if err != nil {
		fail("reload written copy: %v", err)
		return issues
	}
	rereadEncoded, err := store.Encode(reread)
	if err != nil {
		fail("re-encode written copy: %v", err)
		return issues
	}
	if !bytes.Equal(first, rereadEncoded) {
		fail("encoding did not round-trip through disk")
	}

	return issues
}
