package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lepinkainen/bookfinder/internal/catalog"
)

// CatalogCmd groups the catalog subcommands
type CatalogCmd struct {
	Add      CatalogAddCmd      `cmd:"" help:"Upload an e-book to the catalog"`
	List     CatalogListCmd     `cmd:"" help:"List recently added books"`
	Delete   CatalogDeleteCmd   `cmd:"" help:"Remove a book and its file"`
	Activity CatalogActivityCmd `cmd:"" help:"Show the log of catalog changes"`

	ImportGoodreads CatalogImportGoodreadsCmd `cmd:"" help:"Catalog the books of a Goodreads library export"`
}

// CatalogAddCmd represents the catalog add command
type CatalogAddCmd struct {
	File        string `arg:"" help:"PDF or EPUB file to upload" type:"existingfile"`
	Title       string `short:"t" help:"Book title (defaults to the file name)"`
	Author      string `short:"a" help:"Book author"`
	ISBN        string `help:"ISBN of the book"`
	Description string `short:"d" help:"Short description"`
	Uploader    string `short:"u" help:"Name recorded as the uploader"`
}

func (c *CatalogAddCmd) Run() error {
	if !catalog.Allowed(c.File) {
		return fmt.Errorf("unsupported file %q: only PDF and EPUB files are accepted", c.File)
	}

	title := c.Title
	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(filepath.Base(c.File), filepath.Ext(c.File))
	}

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.File, err)
	}
	defer func() { _ = f.Close() }()

	return withLibrary(func(lib *catalog.Library) error {
		b, err := lib.AddUpload(context.Background(), catalog.Book{
			Title:       title,
			Author:      c.Author,
			ISBN:        c.ISBN,
			Description: c.Description,
			Uploader:    c.Uploader,
		}, filepath.Base(c.File), f)
		if err != nil {
			return err
		}
		printf("Added #%d %s (%s)\n", b.ID, b.Title, b.Filename)
		return nil
	})
}

// CatalogListCmd represents the catalog list command
type CatalogListCmd struct {
	Limit int `short:"n" help:"Number of books to list" default:"20"`
}

func (c *CatalogListCmd) Run() error {
	return withLibrary(func(lib *catalog.Library) error {
		ctx := context.Background()
		books, err := lib.Store.Recent(ctx, c.Limit)
		if err != nil {
			return err
		}
		total, err := lib.Store.Count(ctx)
		if err != nil {
			return err
		}

		for _, b := range books {
			file := b.Filename
			if !b.HasFile() {
				file = "no file, " + b.Origin
			}
			printf("#%d %s by %s (%s) %s\n", b.ID, b.Title, b.Author, file, b.UploadDate.Local().Format("2006-01-02"))
		}
		printf("%d of %d books\n", len(books), total)
		return nil
	})
}

// CatalogDeleteCmd represents the catalog delete command
type CatalogDeleteCmd struct {
	ID int64 `arg:"" help:"Catalog ID of the book"`
}

func (c *CatalogDeleteCmd) Run() error {
	return withLibrary(func(lib *catalog.Library) error {
		b, err := lib.Remove(context.Background(), c.ID)
		if err != nil {
			return fmt.Errorf("failed to delete book %d: %w", c.ID, err)
		}
		printf("Deleted #%d %s\n", b.ID, b.Title)
		return nil
	})
}

// CatalogActivityCmd represents the catalog activity command
type CatalogActivityCmd struct {
	Action string `help:"Only show this action (upload, import, delete, review)"`
	Limit  int    `short:"n" help:"Number of entries to show" default:"20"`
}

func (c *CatalogActivityCmd) Run() error {
	return withLibrary(func(lib *catalog.Library) error {
		entries, err := lib.Store.Activity(context.Background(), c.Action, c.Limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			printf("No activity\n")
		}
		for _, a := range entries {
			printf("%s %-7s %s %s: %s\n", a.Timestamp.Local().Format("2006-01-02 15:04"), a.Action, a.TargetType, a.TargetID, a.Details)
		}
		return nil
	})
}

// CatalogImportGoodreadsCmd represents the catalog import-goodreads command
type CatalogImportGoodreadsCmd struct {
	Input    string `arg:"" help:"Path to Goodreads library export CSV file" type:"existingfile"`
	Uploader string `short:"u" help:"Name recorded as the uploader"`
}

func (c *CatalogImportGoodreadsCmd) Run() error {
	return withLibrary(func(lib *catalog.Library) error {
		ctx, stop := signalContext()
		defer stop()

		summary, err := lib.ImportGoodreads(ctx, c.Input, c.Uploader)
		if err != nil {
			return err
		}
		printf("Imported %d books, %d already cataloged, %d failed\n", summary.Added, summary.Existing, summary.Failed)
		return nil
	})
}
