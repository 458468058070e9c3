package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/client"
	"github.com/sakif/ud-notes/internal/core"
	"github.com/sakif/ud-notes/internal/model"
)

// shell reads one command per line and runs it against the Composer.
type shell struct {
	client   *client.Client
	composer *core.Composer
	subjects *core.SubjectRegistry
	notes    *core.NoteRepository

	in  *bufio.Reader
	out io.Writer
	// readPassword reads a password without echo; nil reads a plain line.
	readPassword func() (string, error)
	now          func() time.Time
	done         bool
}

func newShell(c *client.Client, composer *core.Composer, subjects *core.SubjectRegistry, notes *core.NoteRepository, in io.Reader, out io.Writer) *shell {
	return &shell{
		client:   c,
		composer: composer,
		subjects: subjects,
		notes:    notes,
		in:       bufio.NewReader(in),
		out:      out,
		now:      time.Now,
	}
}

func (s *shell) run(ctx context.Context) error {
	s.render()
	for !s.done {
		fmt.Fprint(s.out, "> ")
		line, err := s.in.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			s.exec(ctx, line)
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

func (s *shell) exec(ctx context.Context, line string) {
	args, err := splitArgs(line)
	if err != nil {
		fmt.Fprintf(s.out, "error: %s\n", err)
		return
	}

	cmd := s.commands()
	cmd.SetArgs(args)
	cmd.SetIn(s.in)
	cmd.SetOut(s.out)
	cmd.SetErr(s.out)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(s.out, "error: %s\n", apperror.Message(err))
	}
}

func (s *shell) render() {
	renderView(s.out, s.composer.View(), s.now())
}

// commands builds a fresh command tree for one input line, so no flag value
// survives into the next line.
func (s *shell) commands() *cobra.Command {
	root := &cobra.Command{
		Use:           "notes",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "signup <email>",
			Short: "Create an account and sign in",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				password, err := s.prompt("password: ", true)
				if err != nil {
					return err
				}
				if _, err := s.client.SignUp(cmd.Context(), args[0], password); err != nil {
					return err
				}
				s.render()
				return nil
			},
		},
		&cobra.Command{
			Use:   "signin <email>",
			Short: "Sign in with email and password",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				password, err := s.prompt("password: ", true)
				if err != nil {
					return err
				}
				if _, err := s.client.SignIn(cmd.Context(), args[0], password); err != nil {
					return err
				}
				s.render()
				return nil
			},
		},
		&cobra.Command{
			Use:   "signout",
			Short: "Sign out and forget all loaded data",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				err := s.composer.SignOut(cmd.Context())
				s.render()
				return err
			},
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Show the signed-in account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if !s.composer.View().SignedIn {
					return apperror.Unauthorized("not signed in")
				}
				id, err := s.client.GetCurrentUser(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "%s (%s)\n", id.Email, id.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "subjects",
			Short: "List your subjects",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				renderSubjects(s.out, s.composer.View())
				return nil
			},
		},
		&cobra.Command{
			Use:   "subject <name> [description...]",
			Short: "Create a subject",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				subject, err := s.composer.CreateSubject(cmd.Context(), args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Created subject %q.\n", subject.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "select <subject>|all",
			Short: "Show only notes in one subject, or all notes",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var target *model.Subject
				if args[0] != "all" {
					found, ok := s.subjects.Find(args[0])
					if !ok {
						return fmt.Errorf("no subject named %q (see \"subjects\")", args[0])
					}
					target = found
				}
				err := s.composer.Select(cmd.Context(), target)
				s.render()
				return err
			},
		},
		s.noteCommand(),
		&cobra.Command{
			Use:   "notes",
			Short: "Show the current notes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s.render()
				return nil
			},
		},
		&cobra.Command{
			Use:     "rm <id>",
			Aliases: []string{"delete"},
			Short:   "Delete one of your notes by id or id prefix",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := resolveNoteID(s.notes.Notes(), args[0])
				if err != nil {
					return err
				}
				err = s.composer.DeleteNote(cmd.Context(), id)
				s.render()
				return err
			},
		},
		&cobra.Command{
			Use:   "refresh",
			Short: "Reload subjects and notes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				err := s.composer.Refresh(cmd.Context())
				s.render()
				return err
			},
		},
		&cobra.Command{
			Use:     "quit",
			Aliases: []string{"exit"},
			Short:   "Leave the session",
			Args:    cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				s.done = true
			},
		},
	)
	return root
}

func (s *shell) noteCommand() *cobra.Command {
	var public bool
	cmd := &cobra.Command{
		Use:   "note <title...>",
		Short: "Write a note in the selected subject; end the content with a line holding only \".\"",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := s.readContent()
			if err != nil {
				return err
			}
			form := &core.NoteForm{
				Title:    strings.Join(args, " "),
				Content:  content,
				IsPublic: public,
			}
			_, err = s.composer.CreateNote(cmd.Context(), form)
			s.render()
			return err
		},
	}
	cmd.Flags().BoolVarP(&public, "public", "p", false, "make the note visible to everyone")
	return cmd
}

// readContent reads lines up to a lone "." or end of input.
func (s *shell) readContent() (string, error) {
	fmt.Fprintln(s.out, `content (end with "."):`)
	var lines []string
	for {
		line, err := s.in.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "." {
			break
		}
		if trimmed != "" || err == nil {
			lines = append(lines, trimmed)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (s *shell) prompt(label string, secret bool) (string, error) {
	fmt.Fprint(s.out, label)
	if secret && s.readPassword != nil {
		return s.readPassword()
	}
	line, err := s.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// splitArgs splits a command line on spaces, honouring single and double
// quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range strings.TrimSpace(line) {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inToken {
		args = append(args, cur.String())
	}
	return args, nil
}
