package llmtext

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"paperforge/internal/models"
)

const (
	defaultTitle       = "Untitled Project"
	defaultDescription = "No description provided"
	defaultLanguage    = "Python"
	defaultDifficulty  = "Intermediate"

	FallbackTitle    = "Generated Code (Fallback)"
	FallbackLanguage = "text"
	fallbackFilename = "generated_output.txt"

	emptyCodeNotice = "# Code generation returned no usable content for this project."

	maxProjects = 3
)

var (
	errNotList   = errors.New("payload is neither an object nor a list")
	errEmptyList = errors.New("payload contains no project objects")
)

// ProjectParse is the result of ParseProjects. Degraded is set when the text
// could not be read as structured projects and the single fallback project
// wraps it instead.
type ProjectParse struct {
	Projects []models.ProjectSuggestion
	Degraded bool
	Reason   string
}

// rawProject holds the fields of one suggestion before normalization. Code
// may arrive as a list of files, a single string, or not at all.
type rawProject struct {
	Title              json.RawMessage `json:"title"`
	Description        json.RawMessage `json:"description"`
	Difficulty         json.RawMessage `json:"difficulty"`
	Language           json.RawMessage `json:"language"`
	CodeImplementation json.RawMessage `json:"codeImplementation"`
	Code               json.RawMessage `json:"code"`
}

type rawFile struct {
	Filename json.RawMessage `json:"filename"`
	Code     json.RawMessage `json:"code"`
}

// ParseProjects turns sanitized model output into project suggestions. The
// result always holds at least one project and every project at least one file.
func ParseProjects(text string) ProjectParse {
	projects, err := parseStructured(text)
	if err != nil {
		return ProjectParse{
			Projects: []models.ProjectSuggestion{fallbackProject(text, err)},
			Degraded: true,
			Reason:   err.Error(),
		}
	}
	return ProjectParse{Projects: projects}
}

func parseStructured(text string) (out []models.ProjectSuggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("extract projects: %v", r)
		}
	}()
	items, err := projectItems([]byte(strings.TrimSpace(text)))
	if err != nil {
		return nil, err
	}
	out = make([]models.ProjectSuggestion, 0, len(items))
	for _, item := range items {
		var rp rawProject
		if json.Unmarshal(item, &rp) != nil {
			continue
		}
		out = append(out, normalizeProject(rp))
		if len(out) == maxProjects {
			break
		}
	}
	if len(out) == 0 {
		return nil, errEmptyList
	}
	return out, nil
}

// projectItems resolves the payload shape: a list of objects, a single
// object, or an object wrapping a "projects" list.
func projectItems(b []byte) ([]json.RawMessage, error) {
	var payload json.RawMessage
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	switch firstByte(payload) {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(payload, &items); err != nil {
			return nil, fmt.Errorf("decode project list: %w", err)
		}
		objects := onlyObjects(items)
		if len(objects) == 0 {
			return nil, errEmptyList
		}
		return objects, nil
	case '{':
		var wrapper struct {
			Projects json.RawMessage `json:"projects"`
		}
		if json.Unmarshal(payload, &wrapper) == nil && firstByte(wrapper.Projects) == '[' {
			return projectItems(wrapper.Projects)
		}
		return []json.RawMessage{payload}, nil
	default:
		return nil, errNotList
	}
}

func onlyObjects(items []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		if firstByte(it) == '{' {
			out = append(out, it)
		}
	}
	return out
}

func normalizeProject(rp rawProject) models.ProjectSuggestion {
	p := models.ProjectSuggestion{
		Title:       textOr(rp.Title, defaultTitle),
		Description: textOr(rp.Description, defaultDescription),
		Difficulty:  normalizeDifficulty(textOr(rp.Difficulty, defaultDifficulty)),
		Language:    textOr(rp.Language, defaultLanguage),
	}
	code := rp.CodeImplementation
	if isAbsent(code) {
		code = rp.Code
	}
	p.CodeImplementation = codeFiles(code, p.Language)
	if len(p.CodeImplementation) == 0 {
		p.CodeImplementation = []models.CodeFile{{
			Filename: filenameFor(p.Language),
			Code:     emptyCodeNotice,
		}}
	}
	return p
}

func codeFiles(raw json.RawMessage, language string) []models.CodeFile {
	switch firstByte(raw) {
	case '[':
		var entries []json.RawMessage
		if json.Unmarshal(raw, &entries) != nil {
			return nil
		}
		files := make([]models.CodeFile, 0, len(entries))
		for _, e := range entries {
			if firstByte(e) != '{' {
				continue
			}
			var rf rawFile
			if json.Unmarshal(e, &rf) != nil || isAbsent(rf.Filename) || isAbsent(rf.Code) {
				continue
			}
			files = append(files, models.CodeFile{Filename: asText(rf.Filename), Code: asText(rf.Code)})
		}
		return files
	case '"':
		code := asText(raw)
		if strings.TrimSpace(code) == "" {
			return nil
		}
		return []models.CodeFile{{Filename: filenameFor(language), Code: code}}
	default:
		return nil
	}
}

func fallbackProject(text string, cause error) models.ProjectSuggestion {
	return models.ProjectSuggestion{
		Title:       FallbackTitle,
		Description: "Could not parse structured project suggestions: " + cause.Error(),
		Difficulty:  defaultDifficulty,
		Language:    FallbackLanguage,
		CodeImplementation: []models.CodeFile{{
			Filename: fallbackFilename,
			Code:     text,
		}},
	}
}

func filenameFor(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "python":
		return "main.py"
	case "javascript":
		return "main.js"
	default:
		return "main.txt"
	}
}

func normalizeDifficulty(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner", "easy":
		return "Beginner"
	case "advanced", "hard", "expert":
		return "Advanced"
	default:
		return defaultDifficulty
	}
}

func textOr(raw json.RawMessage, fallback string) string {
	if isAbsent(raw) {
		return fallback
	}
	if s := strings.TrimSpace(asText(raw)); s != "" {
		return s
	}
	return fallback
}

// asText renders a JSON value as text: strings are unquoted, anything else
// keeps its JSON form.
func asText(raw json.RawMessage) string {
	if firstByte(raw) == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return string(bytes.TrimSpace(raw))
}

func isAbsent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func firstByte(raw json.RawMessage) byte {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return 0
	}
	return t[0]
}
