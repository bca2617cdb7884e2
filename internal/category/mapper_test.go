package category

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

func Test_Infer_TitleKeywords_ShouldPickCategory(t *testing.T) {
	mapper := NewDefaultMapper()

	tests := []struct {
		name     string
		job      Job
		expected string
	}{
		{"machine learning", Job{Title: "Senior Machine Learning Engineer"}, MachineLearningScience},
		{"solutions architect override", Job{Title: "Solutions Architect, AWS"}, SolutionsArchitect},
		{"security override", Job{Title: "Cloud Security Engineer"}, Security},
		{"program manager bonus", Job{Title: "Technical Program Manager"}, ProductManagement},
		{"nothing matches", Job{Title: "Head Chef"}, Other},
		{"research", Job{Title: "Research Scientist"}, ResearchScience},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, mapper.Infer(test.job))
		})
	}
}

func Test_Infer_EqualScores_ShouldPreferEarlierCategory(t *testing.T) {
	mapper := NewDefaultMapper()

	category := mapper.Infer(Job{Title: "Data Engineer / DevOps"})

	assert.Equal(t, SoftwareDevelopment, category)
}

func Test_Infer_BusinessIntelligenceAndDataScience_ShouldPreferBusinessIntelligence(t *testing.T) {
	mapper := NewDefaultMapper()

	category := mapper.Infer(Job{Title: "Quantitative Business Analyst"})

	assert.Equal(t, BusinessIntelligence, category)
}

func Test_Infer_DataScientistWithMLSlug_ShouldStayDataScience(t *testing.T) {
	mapper := NewDefaultMapper()

	category := mapper.Infer(Job{Title: "Data Scientist", TechSlugs: []string{"PyTorch"}})

	assert.Equal(t, DataScience, category)
}

func Test_Infer_DescriptionOnly_ShouldNeedSeveralHits(t *testing.T) {
	mapper := NewDefaultMapper()

	assert.Equal(t, Other, mapper.Infer(Job{Title: "Associate", Description: "We use machine learning."}))
	assert.Equal(t, MachineLearningScience, mapper.Infer(Job{
		Title:       "Associate",
		Description: "Machine learning, deep learning and NLP.",
	}))
}

func Test_Infer_NormalizedTitle_ShouldCountSeparately(t *testing.T) {
	mapper := NewDefaultMapper()

	category := mapper.Infer(Job{Title: "Associate", NormalizedTitle: "Software Engineer"})

	assert.Equal(t, SoftwareDevelopment, category)
}

func Test_Normalize_ShouldStripDiacritics(t *testing.T) {
	assert.Equal(t, "ingenieur securite", Normalize("Ingénieur SÉCURITÉ"))
}

func Test_DetectSkills_ShouldFindKnownTechnologies(t *testing.T) {
	mapper := NewDefaultMapper()

	skills := mapper.DetectSkills("Experience with Python, SQL and C++.", "Familiar with AWS")

	assert.Equal(t, []string{"python", "sql", "c++", "aws"}, skills)
	assert.Empty(t, mapper.DetectSkills("", "  "))
}

func Test_LoadMapping_OverrideFile_ShouldPatchDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "category_mapping.yaml")
	content := `
rules:
  Data Science:
    title: ["chef"]
min_score: 2.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	mapping, err := LoadMapping(path)
	require.NoError(t, err)
	mapper := NewMapper(mapping)

	assert.Equal(t, 2.0, mapping.MinScore)
	assert.Equal(t, 0.4, mapping.Weights.Description)
	assert.Equal(t, DataScience, mapper.Infer(Job{Title: "Head Chef"}))
	assert.Equal(t, SoftwareDevelopment, mapper.Infer(Job{Title: "Backend Developer"}))
}

func Test_LoadMapping_MissingFile_ShouldReturnDefaults(t *testing.T) {
	mapping, err := LoadMapping(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultMapping(), mapping)
}

func Test_LoadMapping_InvalidYaml_ShouldFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: [unclosed"), 0o644))

	_, err := LoadMapping(path)

	assert.Error(t, err)
}
