package endpoints

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sourcecheck/internal/api"
	"github.com/jackzampolin/sourcecheck/internal/content"
	"github.com/jackzampolin/sourcecheck/internal/svcctx"
	"github.com/jackzampolin/sourcecheck/internal/types"
)

// ProcessContentRequest is one chapter to run through the reader pipeline.
// Nil step flags default to on.
type ProcessContentRequest struct {
	BookName       string `json:"book_name"`
	Origin         string `json:"origin"`
	ChapterTitle   string `json:"chapter_title"`
	Content        string `json:"content"`
	IncludeTitle   *bool  `json:"include_title,omitempty"`
	UseReplace     *bool  `json:"use_replace,omitempty"`
	ChineseConvert *bool  `json:"chinese_convert,omitempty"`
	ReSegment      *bool  `json:"re_segment,omitempty"`
}

// ProcessContentResponse is the processed chapter.
type ProcessContentResponse struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
}

func stepOn(b *bool) bool { return b == nil || *b }

// ProcessContentEndpoint handles POST /api/content/process.
type ProcessContentEndpoint struct{}

func (e *ProcessContentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/content/process", e.handler
}

func (e *ProcessContentEndpoint) RequiresInit() bool { return true }
func (e *ProcessContentEndpoint) Group() string      { return "content" }

// handler godoc
//
//	@Summary		Process chapter text
//	@Description	Strips a duplicated title, re-segments, converts script, applies replace rules and formats paragraphs
//	@Tags			content
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ProcessContentRequest	true	"Chapter"
//	@Success		200		{object}	ProcessContentResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/content/process [post]
func (e *ProcessContentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ProcessContentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BookName == "" {
		writeError(w, http.StatusBadRequest, "book_name is required")
		return
	}

	proc, err := svcctx.ProcessorsFrom(r.Context()).Get(r.Context(), req.BookName, req.Origin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	book := &types.Book{
		Name:           req.BookName,
		Origin:         req.Origin,
		ReSegment:      stepOn(req.ReSegment),
		UseReplaceRule: true,
	}
	chapter := types.Chapter{Title: req.ChapterTitle}
	opts := content.Options{
		IncludeTitle:   stepOn(req.IncludeTitle),
		UseReplace:     stepOn(req.UseReplace),
		ChineseConvert: stepOn(req.ChineseConvert),
		ReSegment:      stepOn(req.ReSegment),
	}

	paragraphs := proc.Process(book, chapter, req.Content, opts)
	if paragraphs == nil {
		paragraphs = []string{}
	}
	writeJSON(w, http.StatusOK, ProcessContentResponse{
		Title:      proc.DisplayTitle(chapter),
		Paragraphs: paragraphs,
	})
}

func (e *ProcessContentEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req ProcessContentRequest
	var noTitle, noReplace, noConvert, noSegment bool
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Run a chapter text file through the reader pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			req.Content = string(data)
			off := false
			if noTitle {
				req.IncludeTitle = &off
			}
			if noReplace {
				req.UseReplace = &off
			}
			if noConvert {
				req.ChineseConvert = &off
			}
			if noSegment {
				req.ReSegment = &off
			}
			client := api.NewClient(getServerURL())
			var resp ProcessContentResponse
			if err := client.Post(cmd.Context(), "/api/content/process", req, &resp); err != nil {
				return err
			}
			for _, p := range resp.Paragraphs {
				fmt.Println(p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.BookName, "book", "", "Book name (required)")
	cmd.Flags().StringVar(&req.Origin, "origin", "", "Book source URL")
	cmd.Flags().StringVar(&req.ChapterTitle, "title", "", "Chapter title")
	cmd.Flags().BoolVar(&noTitle, "no-title", false, "Omit the title paragraph")
	cmd.Flags().BoolVar(&noReplace, "no-replace", false, "Skip replace rules")
	cmd.Flags().BoolVar(&noConvert, "no-convert", false, "Skip Chinese conversion")
	cmd.Flags().BoolVar(&noSegment, "no-segment", false, "Skip re-segmentation")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}
