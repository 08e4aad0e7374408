package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/chronolog"
	"github.com/hyperengineering/chronolog/internal/notetext"
)

var notesCmd = &cobra.Command{
	Use:   "notes <contract-id>",
	Short: "List a contract's notes, or start a new one",
	Long: `List the notes of a contract, pinned notes first and then by most
recent change. With --new, create a note on the contract instead.`,
	Example: `  chronolog notes 0f6c...
  chronolog notes 0f6c... --new --title "Standup" --content "Sync model agreed"`,
	Args: cobra.ExactArgs(1),
	RunE: runNotes,
}

var noteCmd = &cobra.Command{
	Use:   "note <note-id>",
	Short: "Show or edit a note",
	Long: `Show a note. --title and --content replace the note's text;
--pin and --unpin change whether it is listed first.`,
	Example: `  chronolog note ACME.20250305.001
  chronolog note ACME.20250305.001 --title "Kickoff" --content "Scope agreed"
  chronolog note ACME.20250305.001 --pin`,
	Args: cobra.ExactArgs(1),
	RunE: runNote,
}

var (
	notesNew    bool
	noteTitle   string
	noteContent string
	notePin     bool
	noteUnpin   bool
)

func init() {
	notesCmd.Flags().BoolVar(&notesNew, "new", false, "Create a note on the contract")
	for _, c := range []*cobra.Command{notesCmd, noteCmd} {
		c.Flags().StringVar(&noteTitle, "title", "", "Note title")
		c.Flags().StringVar(&noteContent, "content", "", "Note body, one paragraph per line")
	}
	noteCmd.Flags().BoolVar(&notePin, "pin", false, "Pin the note")
	noteCmd.Flags().BoolVar(&noteUnpin, "unpin", false, "Unpin the note")
	noteCmd.MarkFlagsMutuallyExclusive("pin", "unpin")
}

func runNotes(cmd *cobra.Command, args []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()
	ctx := cmd.Context()

	if notesNew {
		note, err := client.CreateNote(ctx, args[0])
		if err != nil {
			return err
		}
		if noteTitle != "" || noteContent != "" {
			id := note.ID
			if note, err = client.UpdateNote(ctx, id, noteText(noteTitle, noteContent)); err != nil {
				return err
			}
			if note == nil {
				return fmt.Errorf("note %s: %w", id, chronolog.ErrNotFound)
			}
		}
		return output(cmd, note, func(w io.Writer) {
			printSuccess(w, "Created note %s", note.ID)
		})
	}

	notes, err := client.NotesForContract(ctx, args[0])
	if err != nil {
		return err
	}
	return output(cmd, notes, func(w io.Writer) {
		printNotes(w, notes)
	})
}

func runNote(cmd *cobra.Command, args []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()
	ctx, id := cmd.Context(), args[0]

	note, err := client.NoteByID(ctx, id)
	if err != nil {
		return err
	}
	if note == nil {
		return fmt.Errorf("note %s: %w", id, chronolog.ErrNotFound)
	}

	flags := cmd.Flags()
	if flags.Changed("title") || flags.Changed("content") {
		title, content := deref(note.Title), deref(note.Content)
		if flags.Changed("title") {
			title = noteTitle
		}
		if flags.Changed("content") {
			content = noteContent
		}
		if note, err = client.UpdateNote(ctx, id, noteText(title, content)); err != nil {
			return err
		}
		if note == nil {
			return fmt.Errorf("note %s: %w", id, chronolog.ErrNotFound)
		}
	}
	if notePin || noteUnpin {
		if err := client.SetNotePinned(ctx, id, notePin); err != nil {
			return err
		}
		note.IsPinned = notePin
	}

	return output(cmd, note, func(w io.Writer) {
		printNote(w, note)
	})
}

// noteText builds an update that replaces the note's title and body.
func noteText(title, content string) chronolog.NoteUpdate {
	doc := notetext.Document(title, content)
	return chronolog.NoteUpdate{Title: &title, Content: &content, ContentJSON: &doc}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
