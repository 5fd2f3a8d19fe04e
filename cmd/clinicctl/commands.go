package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/client"
)

func (a *app) sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show who the configured credentials belong to",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.client.CheckSession(cmd.Context())
			if errors.Is(err, client.ErrUnauthenticated) {
				return errors.New("credentials rejected; set CLINICCTL_API_KEY or log in again")
			}
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), s,
				[]string{"EMAIL", "ROLE", "CAPABILITIES"},
				[][]string{{s.User.Email, string(s.User.Role), strings.Join(s.Capabilities, ",")}})
		},
	}
}

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login EMAIL",
		Short: "Log in with a password read from stdin and print the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && password == "" {
				return fmt.Errorf("failed to read password: %w", err)
			}
			res, err := a.client.Login(cmd.Context(), args[0], strings.TrimSpace(password))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export CLINICCTL_TOKEN=%s\n", res.Token)
			return nil
		},
	}
}

func (a *app) patientsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "patients", Short: "Look up patients"}

	var search string
	var page model.Pagination
	list := &cobra.Command{
		Use:   "list",
		Short: "List patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			patients, err := a.client.ListPatients(cmd.Context(), search, page)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(patients))
			for _, p := range patients {
				rows = append(rows, []string{p.ID.String(), p.FullName(), p.IDNumber, p.DateOfBirth.String(), p.Phone})
			}
			return a.print(cmd.OutOrStdout(), patients, []string{"ID", "NAME", "ID NUMBER", "BORN", "PHONE"}, rows)
		},
	}
	list.Flags().StringVar(&search, "search", "", "match name, id number or phone")
	list.Flags().IntVar(&page.Page, "page", 0, "page number")
	list.Flags().IntVar(&page.PageSize, "page-size", 0, "page size")

	history := &cobra.Command{
		Use:   "history ID",
		Short: "Show a patient's appointments, consultations and payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid patient id: %w", err)
			}
			h, err := a.client.PatientHistory(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), h,
				[]string{"PATIENT", "APPOINTMENTS", "CONSULTATIONS", "PAYMENTS"},
				[][]string{{h.Patient.FullName(), strconv.Itoa(len(h.Appointments)),
					strconv.Itoa(len(h.Consultations)), strconv.Itoa(len(h.Payments))}})
		},
	}

	cmd.AddCommand(list, history)
	return cmd
}

func (a *app) queueCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "queue", Short: "Inspect and move the patient queue"}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List queue entries in service order",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.client.ListQueue(cmd.Context(), model.QueueStatus(status))
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), entries, queueHeader, queueRows(entries))
		},
	}
	list.Flags().StringVar(&status, "status", "", "waiting, in_progress or completed")

	var doctor string
	next := &cobra.Command{
		Use:   "next",
		Short: "Show the next waiting entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, err := optionalID(doctor)
			if err != nil {
				return err
			}
			entry, err := a.client.NextInQueue(cmd.Context(), doctorID)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), entry, queueHeader, queueRows([]*model.QueueEntry{entry}))
		},
	}
	next.Flags().StringVar(&doctor, "doctor", "", "only entries for or unassigned to this doctor")

	start := &cobra.Command{
		Use:   "start ID",
		Short: "Move a waiting entry to in_progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid queue entry id: %w", err)
			}
			doctorID, err := optionalID(doctor)
			if err != nil {
				return err
			}
			entry, err := a.client.StartQueueEntry(cmd.Context(), id, doctorID)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), entry, queueHeader, queueRows([]*model.QueueEntry{entry}))
		},
	}
	start.Flags().StringVar(&doctor, "doctor", "", "doctor taking the patient")

	complete := &cobra.Command{
		Use:   "complete ID",
		Short: "Move an in_progress entry to completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid queue entry id: %w", err)
			}
			entry, err := a.client.CompleteQueueEntry(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), entry, queueHeader, queueRows([]*model.QueueEntry{entry}))
		},
	}

	cmd.AddCommand(list, next, start, complete, a.watchCmd())
	return cmd
}

var queueHeader = []string{"ID", "PATIENT", "STATUS", "PRIORITY", "DOCTOR", "ENTERED", "WAIT"}

func queueRows(entries []*model.QueueEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		doctor := ""
		if e.DoctorID != nil {
			doctor = e.DoctorID.String()
		}
		wait := ""
		if e.ActualWaitTime != nil {
			wait = strconv.Itoa(*e.ActualWaitTime) + "m"
		}
		rows = append(rows, []string{
			e.ID.String(), e.PatientID.String(), string(e.Status), strconv.Itoa(e.Priority),
			orDash(doctor), e.EnteredAt.Local().Format(time.Kitchen), orDash(wait),
		})
	}
	return rows
}

func optionalID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return &id, nil
}

func (a *app) keysCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "keys", Short: "Manage your API keys"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.client.ListAPIKeys(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(keys))
			for _, k := range keys {
				state := "active"
				if k.RevokedAt != nil {
					state = "revoked"
				}
				rows = append(rows, []string{k.ID.String(), k.Name, k.KeyPrefix, state})
			}
			return a.print(cmd.OutOrStdout(), keys, []string{"ID", "NAME", "PREFIX", "STATE"}, rows)
		},
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an API key; the key is shown once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := a.client.CreateAPIKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), created, []string{"ID", "NAME", "KEY"},
				[][]string{{created.ID.String(), created.Name, created.Key}})
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke ID",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid key id: %w", err)
			}
			if err := a.client.RevokeAPIKey(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "revoked", id)
			return nil
		},
	}

	cmd.AddCommand(list, create, revoke)
	return cmd
}

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show today's clinic figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.client.DashboardStats(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), s,
				[]string{"APPOINTMENTS", "WAITING", "IN PROGRESS", "COMPLETED", "AVG WAIT", "PAYMENTS"},
				[][]string{{
					strconv.Itoa(s.AppointmentsToday), strconv.Itoa(s.Waiting), strconv.Itoa(s.InProgress),
					strconv.Itoa(s.CompletedToday), strconv.FormatFloat(s.AverageWaitMinutes, 'f', 1, 64) + "m",
					s.PaymentsTotalToday.StringFixed(2),
				}})
		},
	}
}

func (a *app) activityCmd() *cobra.Command {
	var entity string
	var page model.Pagination
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the activity log (admins only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := a.client.ListActivity(cmd.Context(), entity, page)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(logs))
			for _, l := range logs {
				user, entityID := "", ""
				if l.UserID != nil {
					user = l.UserID.String()
				}
				if l.EntityID != nil {
					entityID = l.EntityID.String()
				}
				rows = append(rows, []string{
					l.CreatedAt.Local().Format(time.DateTime), orDash(user), l.Action,
					l.EntityType, orDash(entityID),
				})
			}
			return a.print(cmd.OutOrStdout(), logs, []string{"AT", "USER", "ACTION", "ENTITY", "ENTITY ID"}, rows)
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "filter by entity type")
	cmd.Flags().IntVar(&page.Page, "page", 0, "page number")
	cmd.Flags().IntVar(&page.PageSize, "page-size", 0, "page size")
	return cmd
}

// withTimeout is used by commands that do not go through the HTTP client.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
