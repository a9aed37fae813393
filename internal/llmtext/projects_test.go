package llmtext

import (
	"testing"

	"github.com/stretchr/testify/require"

	"paperforge/internal/models"
)

func TestParseProjectsFencedScenario(t *testing.T) {
	raw := "```json\n{\"title\":\"A\",\"description\":\"B\",\"language\":\"Python\",\"codeImplementation\":[{\"filename\":\"a.py\",\"code\":\"print(1)\"}]}\n```"
	res := ParseProjects(Sanitize(raw, true))
	require.False(t, res.Degraded)
	require.Len(t, res.Projects, 1)
	p := res.Projects[0]
	require.Equal(t, "A", p.Title)
	require.Equal(t, "B", p.Description)
	require.Equal(t, "Python", p.Language)
	require.Len(t, p.CodeImplementation, 1)
	require.Equal(t, "a.py", p.CodeImplementation[0].Filename)
	require.Equal(t, "print(1)", p.CodeImplementation[0].Code)
}

func TestParseProjectsProseFallsBack(t *testing.T) {
	cleaned := Sanitize("I could not produce JSON, but here is an idea: build a parser.", true)
	res := ParseProjects(cleaned)
	require.True(t, res.Degraded)
	require.NotEmpty(t, res.Reason)
	require.Len(t, res.Projects, 1)
	p := res.Projects[0]
	require.Equal(t, FallbackTitle, p.Title)
	require.Equal(t, FallbackLanguage, p.Language)
	require.Contains(t, p.Description, "invalid json")
	require.Len(t, p.CodeImplementation, 1)
	require.Equal(t, cleaned, p.CodeImplementation[0].Code)
}

func TestParseProjectsDefaults(t *testing.T) {
	res := ParseProjects(`[{"code":"console.log(1)","language":"JavaScript"},{}]`)
	require.False(t, res.Degraded)
	require.Len(t, res.Projects, 2)

	first := res.Projects[0]
	require.Equal(t, "Untitled Project", first.Title)
	require.Equal(t, "No description provided", first.Description)
	require.Equal(t, "Intermediate", first.Difficulty)
	require.Equal(t, []string{"main.js"}, filenames(first))
	require.Equal(t, "console.log(1)", first.CodeImplementation[0].Code)

	second := res.Projects[1]
	require.Equal(t, "Python", second.Language)
	require.Len(t, second.CodeImplementation, 1)
	require.Equal(t, "main.py", second.CodeImplementation[0].Filename)
	require.Equal(t, emptyCodeNotice, second.CodeImplementation[0].Code)
}

func TestParseProjectsPrefersCodeImplementation(t *testing.T) {
	res := ParseProjects(`{"codeImplementation":"a = 1","code":"b = 2","language":"Go"}`)
	require.Len(t, res.Projects, 1)
	require.Equal(t, "main.txt", res.Projects[0].CodeImplementation[0].Filename)
	require.Equal(t, "a = 1", res.Projects[0].CodeImplementation[0].Code)
}

func TestParseProjectsSkipsMalformedFiles(t *testing.T) {
	res := ParseProjects(`[{"title":"T","codeImplementation":[
		{"filename":"ok.py","code":"x=1"},
		{"filename":"missing_code.py"},
		{"code":"orphan"},
		"not an object",
		{"filename":7,"code":true}
	]}]`)
	require.False(t, res.Degraded)
	p := res.Projects[0]
	require.Equal(t, []string{"ok.py", "7"}, filenames(p))
	require.Equal(t, "true", p.CodeImplementation[1].Code)
}

func TestParseProjectsWrapperObject(t *testing.T) {
	res := ParseProjects(`{"projects":[{"title":"One","difficulty":"beginner","code":"1"},{"title":"Two","difficulty":"HARD","code":"2"}]}`)
	require.False(t, res.Degraded)
	require.Len(t, res.Projects, 2)
	require.Equal(t, "Beginner", res.Projects[0].Difficulty)
	require.Equal(t, "Advanced", res.Projects[1].Difficulty)
}

func TestParseProjectsCapsList(t *testing.T) {
	res := ParseProjects(`[{"title":"1"},{"title":"2"},{"title":"3"},{"title":"4"}]`)
	require.Len(t, res.Projects, 3)
}

func TestParseProjectsWrongShapes(t *testing.T) {
	for _, in := range []string{`[]`, `"a string"`, `42`, `[1,2,3]`, `null`} {
		res := ParseProjects(in)
		require.True(t, res.Degraded, in)
		require.Equal(t, FallbackTitle, res.Projects[0].Title)
		require.Equal(t, in, res.Projects[0].CodeImplementation[0].Code)
	}
}

func TestParseProjectsTotal(t *testing.T) {
	inputs := []string{
		"",
		"garbage",
		`[{"title":"truncated","codeImplementation":[{"filename":"a.py","co`,
		`{"title": }`,
		`[{"title":null,"description":null,"language":null,"codeImplementation":null}]`,
		`[{"codeImplementation":[]}]`,
		`[{"codeImplementation":{"filename":"x"}}]`,
		"\x00\xff",
	}
	for _, in := range inputs {
		res := ParseProjects(in)
		require.NotEmpty(t, res.Projects, "input %q", in)
		for _, p := range res.Projects {
			require.NotEmpty(t, p.CodeImplementation, "input %q", in)
		}
	}
}

func filenames(p models.ProjectSuggestion) []string {
	out := make([]string, 0, len(p.CodeImplementation))
	for _, f := range p.CodeImplementation {
		out = append(out, f.Filename)
	}
	return out
}
