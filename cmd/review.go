package cmd

import (
	"context"
	"strconv"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/catalog"
)

// ReviewCmd groups the review subcommands
type ReviewCmd struct {
	Add  ReviewAddCmd  `cmd:"" help:"Review a cataloged book"`
	List ReviewListCmd `cmd:"" help:"List the reviews of a book"`
}

// ReviewAddCmd represents the review add command
type ReviewAddCmd struct {
	BookID   int64  `arg:"" help:"Catalog ID of the book"`
	Rating   int    `short:"r" help:"Rating from 1 to 5" required:""`
	Text     string `short:"m" help:"Review text"`
	Username string `short:"u" help:"Reviewer name (defaults to anonymous)"`
}

func (r *ReviewAddCmd) Run() error {
	return withLibrary(func(lib *catalog.Library) error {
		ctx := context.Background()
		b, err := lib.Store.Get(ctx, r.BookID)
		if err != nil {
			return err
		}

		review, err := lib.AddReview(ctx, book.Review{
			Source:   book.SourceUploaded,
			BookID:   strconv.FormatInt(b.ID, 10),
			Username: r.Username,
			Rating:   r.Rating,
			Text:     r.Text,
		})
		if err != nil {
			return err
		}
		printf("%s rated %s %d/5\n", review.Username, b.Title, review.Rating)
		return nil
	})
}

// ReviewListCmd represents the review list command
type ReviewListCmd struct {
	BookID int64 `arg:"" help:"Catalog ID of the book"`
	Limit  int   `short:"n" help:"Number of reviews to list, 0 for all" default:"0"`
}

func (r *ReviewListCmd) Run() error {
	return withLibrary(func(lib *catalog.Library) error {
		reviews, err := lib.Store.Reviews(context.Background(), book.SourceUploaded, strconv.FormatInt(r.BookID, 10), r.Limit)
		if err != nil {
			return err
		}
		if len(reviews) == 0 {
			printf("No reviews for #%d\n", r.BookID)
		}
		for _, rv := range reviews {
			printf("%d/5 %s (%s)\n", rv.Rating, rv.Username, rv.CreatedAt.Local().Format("2006-01-02"))
			if rv.Text != "" {
				printf("    %s\n", rv.Text)
			}
		}
		return nil
	})
}
