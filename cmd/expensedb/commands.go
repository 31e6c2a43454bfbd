package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"expense-tracker/internal/auth"
	"expense-tracker/internal/models"
	"expense-tracker/internal/storage"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the users and expenses tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(engine *storage.Engine) error {
				tables := engine.Registry().Tables()
				names := make([]string, 0, len(tables))
				for _, t := range tables {
					names = append(names, t.Name)
				}
				fmt.Fprintf(a.stdout, "Database ready (%s dialect, tables: %s)\n",
					engine.Dialect(), strings.Join(names, ", "))
				return nil
			})
		},
	}
}

func (a *app) addUserCmd() *cobra.Command {
	var (
		name     string
		email    string
		password string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				_ = cmd.Usage()
				return fmt.Errorf("missing required flags: email")
			}

			if password == "" {
				fmt.Fprint(a.stdout, "Password: ")
				var err error
				password, err = readPassword(a.stdin)
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				fmt.Fprintln(a.stdout) // Print newline after password input
			}
			if strings.TrimSpace(password) == "" {
				return fmt.Errorf("password cannot be empty")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}

			active := !inactive
			nu := models.NewUser{Name: name, Email: email, HashedPassword: hash, IsActive: &active}

			return a.withEngine(cmd.Context(), func(engine *storage.Engine) error {
				var user *models.User
				err := engine.WithSession(cmd.Context(), func(s *storage.Session) error {
					var err error
					user, err = s.CreateUser(cmd.Context(), nu)
					return err
				})
				if errors.Is(err, storage.ErrUniqueViolation) {
					return fmt.Errorf("user %s already exists", email)
				}
				if err != nil {
					return err
				}

				log.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("User created")
				fmt.Fprintf(a.stdout, "User %s created successfully with ID %d\n", user.Email, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address (unique)")
	cmd.Flags().StringVar(&password, "password", "", "Password (optional, will prompt if omitted)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the user as inactive")
	return cmd
}

func (a *app) deleteUserCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "deleteuser",
		Short: "Delete a user and every expense they own",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				_ = cmd.Usage()
				return fmt.Errorf("missing required flags: email")
			}

			return a.withEngine(cmd.Context(), func(engine *storage.Engine) error {
				var removed int
				err := engine.WithSession(cmd.Context(), func(s *storage.Session) error {
					user, err := lookupUser(cmd.Context(), s, email)
					if err != nil {
						return err
					}
					expenses, err := s.ListExpensesByUser(cmd.Context(), user.ID)
					if err != nil {
						return err
					}
					removed = len(expenses)
					return s.DeleteUser(cmd.Context(), user.ID)
				})
				if err != nil {
					return err
				}

				fmt.Fprintf(a.stdout, "User %s deleted (%d expenses removed)\n", email, removed)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the user to delete")
	return cmd
}

func (a *app) addExpenseCmd() *cobra.Command {
	var (
		email       string
		amount      float64
		description string
		category    string
		subcategory string
		date        string
	)

	cmd := &cobra.Command{
		Use:   "addexpense",
		Short: "Record an expense for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var missing []string
			if email == "" {
				missing = append(missing, "email")
			}
			if strings.TrimSpace(category) == "" {
				missing = append(missing, "category")
			}
			if len(missing) > 0 {
				_ = cmd.Usage()
				return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
			}

			ne := models.NewExpense{
				Description: description,
				Amount:      amount,
				Category:    category,
			}
			if cmd.Flags().Changed("subcategory") {
				ne.Subcategory = &subcategory
			}
			if date != "" {
				parsed, err := parseDate(date)
				if err != nil {
					return err
				}
				ne.Date = parsed
			}

			return a.withEngine(cmd.Context(), func(engine *storage.Engine) error {
				var expense *models.Expense
				err := engine.WithSession(cmd.Context(), func(s *storage.Session) error {
					user, err := lookupUser(cmd.Context(), s, email)
					if err != nil {
						return err
					}
					ne.UserID = user.ID
					expense, err = s.CreateExpense(cmd.Context(), ne)
					return err
				})
				if err != nil {
					return err
				}

				fmt.Fprintf(a.stdout, "Expense %d recorded for %s: %.2f %s on %s\n",
					expense.ID, email, expense.Amount, expense.Category, expense.Date.Format(dateLayout))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the owning user")
	cmd.Flags().Float64Var(&amount, "amount", 0, "Amount spent")
	cmd.Flags().StringVar(&description, "description", "", "What the money was spent on")
	cmd.Flags().StringVar(&category, "category", "", "Expense category")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "Optional subcategory")
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD or RFC 3339 (default now)")
	return cmd
}

func (a *app) expensesCmd() *cobra.Command {
	var (
		email string
		month string
	)

	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "List a user's expenses, latest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				_ = cmd.Usage()
				return fmt.Errorf("missing required flags: email")
			}

			var from, to time.Time
			if month != "" {
				var err error
				if from, to, err = monthRange(month); err != nil {
					return err
				}
			}

			return a.withEngine(cmd.Context(), func(engine *storage.Engine) error {
				var expenses []models.Expense
				err := engine.WithSession(cmd.Context(), func(s *storage.Session) error {
					user, err := lookupUser(cmd.Context(), s, email)
					if err != nil {
						return err
					}
					if month == "" {
						expenses, err = s.ListExpensesByUser(cmd.Context(), user.ID)
					} else {
						expenses, err = s.ListExpensesBetween(cmd.Context(), user.ID, from, to)
					}
					return err
				})
				if err != nil {
					return err
				}

				if len(expenses) == 0 {
					fmt.Fprintf(a.stdout, "No expenses for %s\n", email)
					return nil
				}

				w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tSUBCATEGORY\tAMOUNT\tDESCRIPTION")
				for _, e := range expenses {
					sub := "-"
					if e.Subcategory != nil {
						sub = *e.Subcategory
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%s\n",
						e.ID, e.Date.Format(dateLayout), e.Category, sub, e.Amount, e.Description)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the owning user")
	cmd.Flags().StringVar(&month, "month", "", "Only list expenses in this month (YYYY-MM)")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	var (
		email string
		month string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a user's spending per category for one month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				_ = cmd.Usage()
				return fmt.Errorf("missing required flags: email")
			}
			if month == "" {
				month = time.Now().UTC().Format(monthLayout)
			}
			from, to, err := monthRange(month)
			if err != nil {
				return err
			}

			return a.withEngine(cmd.Context(), func(engine *storage.Engine) error {
				var totals []models.CategoryTotal
				err := engine.WithSession(cmd.Context(), func(s *storage.Session) error {
					user, err := lookupUser(cmd.Context(), s, email)
					if err != nil {
						return err
					}
					totals, err = s.CategoryTotals(cmd.Context(), user.ID, from, to)
					return err
				})
				if err != nil {
					return err
				}

				fmt.Fprintf(a.stdout, "Spending for %s in %s\n", email, month)
				w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
				var total float64
				for _, ct := range totals {
					total += ct.Total
					fmt.Fprintf(w, "%s\t%d\t%.2f\n", ct.Category, ct.Count, ct.Total)
				}
				fmt.Fprintf(w, "Total\t\t%.2f\n", total)
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the owning user")
	cmd.Flags().StringVar(&month, "month", "", "Month to summarize (YYYY-MM, default current month)")
	return cmd
}

func lookupUser(ctx context.Context, s *storage.Session, email string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("user %s not found", email)
	}
	return user, err
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", value)
	}
	return t, nil
}

// monthRange returns the half-open UTC interval covering month (YYYY-MM).
func monthRange(month string) (time.Time, time.Time, error) {
	from, err := time.Parse(monthLayout, month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: use YYYY-MM", month)
	}
	return from, from.AddDate(0, 1, 0), nil
}
