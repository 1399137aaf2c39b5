package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Save12sttm/Vaulto/internal/service"
	"github.com/Save12sttm/Vaulto/internal/totp"
	"github.com/Save12sttm/Vaulto/internal/vault"
)

type addFlags struct {
	title      string
	user       string
	url        string
	notes      string
	category   string
	tags       []string
	totp       string
	itemType   string
	favorite   bool
	generate   bool
	cardNumber string
	cardExpiry string
	cardHolder string
}

func newAddCmd(a *app) *cobra.Command {
	var f addFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(f.title) == "" {
				return userError{msg: "add requires --title"}
			}
			svc, err := a.unlockedService()
			if err != nil {
				return err
			}
			defer svc.Close()

			id, err := a.addRecord(svc, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "record %d added\n", id)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.title, "title", "", "record title")
	fl.StringVar(&f.user, "user", "", "username")
	fl.StringVar(&f.url, "url", "", "website address")
	fl.StringVar(&f.notes, "notes", "", "free-form notes")
	fl.StringVar(&f.category, "category", vault.DefaultCategory, "category")
	fl.StringSliceVar(&f.tags, "tags", nil, "comma-separated tags")
	fl.StringVar(&f.totp, "totp", "", "Base32 TOTP secret")
	fl.StringVar(&f.itemType, "type", vault.TypePassword, "item type: PASSWORD, CARD, IDENTITY, NOTE")
	fl.BoolVar(&f.favorite, "favorite", false, "mark as favourite")
	fl.BoolVar(&f.generate, "generate", false, "generate the password instead of prompting")
	fl.StringVar(&f.cardNumber, "card-number", "", "card number")
	fl.StringVar(&f.cardExpiry, "card-expiry", "", "card expiry (MM/YY)")
	fl.StringVar(&f.cardHolder, "card-holder", "", "card holder name")
	return cmd
}

func (a *app) addRecord(svc *service.Service, f addFlags) (int64, error) {
	r := vault.Record{
		Title:      f.title,
		Username:   f.user,
		URL:        f.url,
		Notes:      f.notes,
		Category:   f.category,
		Tags:       f.tags,
		TOTPSecret: f.totp,
		ItemType:   strings.ToUpper(f.itemType),
		IsFavorite: f.favorite,
		CardNumber: f.cardNumber,
		CardExpiry: f.cardExpiry,
		CardHolder: f.cardHolder,
	}
	if r.TOTPSecret != "" && !totp.ValidateSecret(r.TOTPSecret) {
		return 0, userError{msg: "TOTP secret is not valid Base32"}
	}

	switch {
	case r.ItemType == vault.TypeCard:
		cvv, err := a.promptPassword("CVV: ")
		if err != nil {
			return 0, fmt.Errorf("read cvv: %w", err)
		}
		r.CardCVV = string(cvv)
		zeroBytes(cvv)
	case r.ItemType != vault.TypePassword:
	case f.generate:
		opts := generatorOptions(a)
		res, err := svc.Generator().GenerateFromOptions(opts)
		if err != nil {
			return 0, err
		}
		r.Password = res.Password
		fmt.Fprintf(a.out, "generated %s password (%.1f bits)\n", res.Strength, res.Entropy)
	default:
		pw, confirm, err := a.promptNewPassword("Secret: ", "Confirm: ")
		if err != nil {
			return 0, err
		}
		defer zeroBytes(pw)
		defer zeroBytes(confirm)
		if string(pw) != string(confirm) {
			return 0, userError{msg: "secrets do not match"}
		}
		r.Password = string(pw)
	}

	return svc.AddRecord(r)
}

func newGetCmd(a *app) *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a record",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.unlockedService()
			if err != nil {
				return err
			}
			defer svc.Close()

			r, err := svc.GetRecord(id)
			if err != nil {
				return err
			}
			printRecord(a.out, r, show, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print secrets in clear")
	return cmd
}

func printRecord(w io.Writer, r vault.Record, show bool, now time.Time) {
	secret := func(s string) string {
		if show || s == "" {
			return s
		}
		return "********"
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, v)
		}
	}
	row("id", fmt.Sprint(r.ID))
	row("title", r.Title)
	row("type", r.ItemType)
	row("category", r.Category)
	row("username", r.Username)
	row("password", secret(r.Password))
	row("url", r.URL)
	row("notes", r.Notes)
	row("tags", strings.Join(r.Tags, ", "))
	if r.IsFavorite {
		row("favorite", "yes")
	}
	if r.ItemType == vault.TypeCard {
		row("card holder", r.CardHolder)
		row("card number", secret(r.CardNumber))
		row("card expiry", r.CardExpiry)
		row("card cvv", secret(r.CardCVV))
	}
	if r.HasTOTP {
		if code, err := totp.Now(r.TOTPSecret, now); err == nil {
			remaining := totp.RemainingSeconds(now.Unix(), totp.DefaultStep)
			row("totp", fmt.Sprintf("%s (%ds left)", code, remaining))
		}
	}
	row("modified", time.UnixMilli(r.ModifiedAt).Format(time.DateTime))
	tw.Flush()
}

func newListCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.unlockedService()
			if err != nil {
				return err
			}
			defer svc.Close()

			records, err := svc.ListRecords()
			if err != nil {
				return err
			}
			printList(a.out, filterCategory(records, category))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list this category")
	return cmd
}

func filterCategory(records []vault.Record, category string) []vault.Record {
	if category == "" {
		return records
	}
	out := records[:0:0]
	for _, r := range records {
		if strings.EqualFold(r.Category, category) {
			out = append(out, r)
		}
	}
	return out
}

func printList(w io.Writer, records []vault.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no records")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUSERNAME\tCATEGORY\tTYPE\tMODIFIED")
	for _, r := range records {
		title := r.Title
		if r.IsFavorite {
			title = "* " + title
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, title, r.Username, r.Category, r.ItemType,
			time.UnixMilli(r.ModifiedAt).Format(time.DateOnly))
	}
	tw.Flush()
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a record",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.unlockedService()
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.DeleteRecord(id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "record %d deleted\n", id)
			return nil
		},
	}
}
