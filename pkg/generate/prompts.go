package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fablecraft/gofable/internal/store"
)

// SectionKind selects which encyclopedia section to generate.
type SectionKind string

const (
	SectionCharacters SectionKind = "characters"
	SectionArc        SectionKind = "arc"
	SectionLore       SectionKind = "lore"
)

// SectionResult carries the generated entries for one section. Only the field
// matching the requested kind is populated.
type SectionResult struct {
	Characters []store.Character
	Arc        []store.Act
	Lore       []store.LoreEntry
}

// sectionPrompts holds the JSON-shape instructions per section.
var sectionPrompts = map[SectionKind]string{
	SectionCharacters: `Propose 3-6 new characters for this story.
Return a JSON object: {"characters": [{"name": "...", "role": "protagonist|antagonist|love_interest|supporting", "description": "..."}]}`,
	SectionArc: `Propose a three-act story arc.
Return a JSON object: {"arc": [{"title": "...", "plotPoints": [{"summary": "..."}]}]}`,
	SectionLore: `Propose 3-6 lore entries for the requested category.
Return a JSON object: {"entries": [{"name": "...", "description": "..."}]}`,
}

// GenerateSection asks the model for one encyclopedia section in JSON mode
// and returns the parsed entries with fresh ids. For SectionLore, category
// names which of the ten lore categories to fill.
func (c *Client) GenerateSection(ctx context.Context, story *store.Story, kind SectionKind, category string) (*SectionResult, error) {
	instr, ok := sectionPrompts[kind]
	if !ok {
		return nil, fmt.Errorf("unknown section kind %q", kind)
	}

	var user strings.Builder
	user.WriteString(storyContext(story))
	user.WriteString("\n")
	if kind == SectionLore {
		fmt.Fprintf(&user, "Category: %s\n", category)
	}
	user.WriteString(instr)

	raw, err := c.Complete(ctx, sectionSystemPrompt(story), user.String(), true)
	if err != nil {
		return nil, err
	}

	var wire struct {
		Characters []struct {
			Name        string `json:"name"`
			Role        string `json:"role"`
			Description string `json:"description"`
		} `json:"characters"`
		Arc []struct {
			Title      string `json:"title"`
			PlotPoints []struct {
				Summary string `json:"summary"`
			} `json:"plotPoints"`
		} `json:"arc"`
		Entries []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"entries"`
	}
	if err := ParseJSON(raw, &wire); err != nil {
		return nil, err
	}

	res := &SectionResult{}
	for _, w := range wire.Characters {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			continue
		}
		role := w.Role
		switch role {
		case store.RoleProtagonist, store.RoleAntagonist, store.RoleLoveInterest, store.RoleSupporting:
		default:
			role = store.RoleSupporting
		}
		res.Characters = append(res.Characters, store.Character{
			ID:          uuid.NewString(),
			Name:        name,
			Role:        role,
			Description: strings.TrimSpace(w.Description),
		})
	}
	for _, w := range wire.Arc {
		act := store.Act{
			ID:         uuid.NewString(),
			Title:      strings.TrimSpace(w.Title),
			PlotPoints: []store.PlotPoint{},
		}
		if act.Title == "" {
			continue
		}
		for _, p := range w.PlotPoints {
			if s := strings.TrimSpace(p.Summary); s != "" {
				act.PlotPoints = append(act.PlotPoints, store.PlotPoint{ID: uuid.NewString(), Summary: s})
			}
		}
		res.Arc = append(res.Arc, act)
	}
	for _, w := range wire.Entries {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			continue
		}
		res.Lore = append(res.Lore, store.LoreEntry{
			ID:          uuid.NewString(),
			Name:        name,
			Description: strings.TrimSpace(w.Description),
		})
	}

	if len(res.Characters) == 0 && len(res.Arc) == 0 && len(res.Lore) == 0 {
		return nil, ErrEmptyResponse
	}
	return res, nil
}

// ContinueChapter drafts prose continuing the given chapter, honoring the
// story's tone, language and perspective.
func (c *Client) ContinueChapter(ctx context.Context, story *store.Story, chapterID string) (string, error) {
	var chapter *store.Chapter
	for i := range story.Chapters {
		if story.Chapters[i].ID == chapterID {
			chapter = &story.Chapters[i]
			break
		}
	}
	if chapter == nil {
		return "", fmt.Errorf("chapter %s not found", chapterID)
	}
	if chapter.Type == store.ChapterTypeHeader {
		return "", fmt.Errorf("cannot continue a section header")
	}

	var user strings.Builder
	user.WriteString(storyContext(story))
	fmt.Fprintf(&user, "\nChapter so far (%q):\n%s\n\n", chapter.Title, chapter.Content)
	user.WriteString("Continue the chapter with 2-4 paragraphs of prose. Return prose only, no commentary.")

	return c.Complete(ctx, sectionSystemPrompt(story), user.String(), false)
}

func sectionSystemPrompt(story *store.Story) string {
	return fmt.Sprintf(
		"You are a fiction co-writer. Write in %s, %s perspective. Tone (1-10): darkness %d, humor %d, romance %d, suspense %d, violence %d.",
		story.Language, story.Perspective,
		story.Tone.Darkness, story.Tone.Humor, story.Tone.Romance, story.Tone.Suspense, story.Tone.Violence,
	)
}

// storyContext renders the encyclopedia for the model.
func storyContext(story *store.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", story.Title)
	if len(story.Genres) > 0 {
		fmt.Fprintf(&b, "Genres: %s\n", strings.Join(story.Genres, ", "))
	}
	if story.Setting != "" {
		fmt.Fprintf(&b, "Setting: %s\n", story.Setting)
	}
	if len(story.Characters) > 0 {
		b.WriteString("Characters:\n")
		for _, ch := range story.Characters {
			fmt.Fprintf(&b, "- %s (%s): %s\n", ch.Name, ch.Role, ch.Description)
		}
	}
	if len(story.Arc) > 0 {
		b.WriteString("Arc:\n")
		for _, act := range story.Arc {
			fmt.Fprintf(&b, "- %s\n", act.Title)
			for _, p := range act.PlotPoints {
				fmt.Fprintf(&b, "  - %s\n", p.Summary)
			}
		}
	}
	return b.String()
}
