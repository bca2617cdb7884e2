package category

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"os"
)

const (
	SoftwareDevelopment    = "Software Development"
	DataScience            = "Data Science"
	MachineLearningScience = "Machine Learning Science"
	BusinessIntelligence   = "Business Intelligence"
	ProductManagement      = "Project/Program/Product Management--Technical"
	OperationsEngineering  = "Operations, IT, & Support Engineering"
	ResearchScience        = "Research Science"
	SolutionsArchitect     = "Solutions Architect"
	Security               = "Security"
	Other                  = "Other"
)

// Canonical is the category order used for tie resolution and in the dashboard.
var Canonical = []string{
	SoftwareDevelopment,
	DataScience,
	MachineLearningScience,
	BusinessIntelligence,
	ProductManagement,
	OperationsEngineering,
	ResearchScience,
	SolutionsArchitect,
	Security,
	Other,
}

type Rule struct {
	Title     []string `yaml:"title"`
	TechSlugs []string `yaml:"tech_slugs"`
}

type Weights struct {
	Title           float64 `yaml:"title"`
	NormalizedTitle float64 `yaml:"normalized_title"`
	TechSlugs       float64 `yaml:"tech_slugs"`
	Description     float64 `yaml:"description"`
}

type TieBreakers struct {
	MLOverDataScience          bool `yaml:"ml_over_data_science"`
	BIOverDataScience          bool `yaml:"bi_over_data_science"`
	SecurityOverride           bool `yaml:"security_override"`
	SolutionsArchitectOverride bool `yaml:"solutions_architect_override"`
}

// Mapping holds the scoring rules. A YAML file with the same layout can
// override any part of the defaults.
type Mapping struct {
	Categories  []string        `yaml:"categories"`
	Rules       map[string]Rule `yaml:"rules"`
	TieBreakers TieBreakers     `yaml:"tie_breakers"`
	Weights     Weights         `yaml:"weights"`
	MinScore    float64         `yaml:"min_score"`
	// Skills are technologies looked up in free text when a source has no slugs.
	Skills []string `yaml:"skills"`
}

func DefaultMapping() Mapping {
	return Mapping{
		Categories: append([]string(nil), Canonical...),
		Rules: map[string]Rule{
			MachineLearningScience: {
				Title: []string{
					"machine learning", "ml", "deep learning", "nlp", "natural language",
					"computer vision", "cv", "reinforcement learning",
					"ai ", // trailing space keeps "aid" and friends out
					" generative ai", "genai", " llm",
				},
				TechSlugs: []string{"tensorflow", "pytorch", "scikit-learn", "keras", "huggingface", "xgboost", "lightgbm", "transformers"},
			},
			DataScience: {
				Title: []string{
					"data scientist", "quant ", "quantitative", "experimentation", "causal",
					"econometric", "statistician", "applied scientist",
				},
				TechSlugs: []string{"statsmodels", "prophet"},
			},
			BusinessIntelligence: {
				Title: []string{
					"business intelligence", "bi ", "analytics engineer", "data analyst",
					"business analyst", "analytics ",
				},
				TechSlugs: []string{"tableau", "powerbi", "looker", "qlik", "superset", "mode", "metabase"},
			},
			SoftwareDevelopment: {
				Title: []string{
					"software engineer", "developer", "sde", "backend", "front-end", "frontend",
					"full stack", "data engineer", "etl", "pipeline", "warehouse", "platform engineer",
				},
				TechSlugs: []string{"spark", "kafka", "hadoop", "dbt", "airflow", "snowflake", "bigquery", "redshift", "databricks"},
			},
			OperationsEngineering: {
				Title: []string{
					"devops", "sre", "site reliability", "systems engineer", "infrastructure",
					"platform", "sysadmin",
				},
				TechSlugs: []string{"kubernetes", "docker", "terraform", "ansible", "grafana", "prometheus", "helm", "eks", "ecs"},
			},
			SolutionsArchitect: {
				Title: []string{"solutions architect", "solution architect", "cloud architect"},
			},
			Security: {
				Title: []string{
					"security engineer", "application security", "appsec", "cloud security",
					"infosec", "security analyst",
				},
				TechSlugs: []string{"vault", "snyk", "burp", "wireshark", "osquery"},
			},
			ResearchScience: {
				Title: []string{"research scientist", "researcher"},
			},
			ProductManagement: {
				Title: []string{
					"product manager", "technical product manager", "program manager",
					"project manager", "tpm",
				},
			},
		},
		TieBreakers: TieBreakers{
			MLOverDataScience:          true,
			BIOverDataScience:          true,
			SecurityOverride:           true,
			SolutionsArchitectOverride: true,
		},
		Weights: Weights{
			Title:           1.0,
			NormalizedTitle: 1.0,
			TechSlugs:       0.8,
			Description:     0.4,
		},
		MinScore: 1.0,
		Skills: []string{
			"python", "java", "scala", "sql", "golang", "rust", "c++", "typescript", "javascript",
			"react", "node.js", "aws", "azure", "gcp", "linux",
			"spark", "kafka", "hadoop", "dbt", "airflow", "snowflake", "bigquery", "redshift", "databricks",
			"kubernetes", "docker", "terraform", "ansible", "grafana", "prometheus", "helm",
			"tensorflow", "pytorch", "scikit-learn", "keras", "xgboost",
			"tableau", "power bi", "looker", "qlik",
		},
	}
}

// LoadMapping reads a YAML override on top of the defaults. An empty path or
// a missing file yields the defaults.
func LoadMapping(path string) (Mapping, error) {

	mapping := DefaultMapping()
	if path == "" {
		return mapping, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debugf("category mapping %s not found, using defaults", path)
		return mapping, nil
	}
	if err != nil {
		return mapping, errors.Wrap(err, "read category mapping")
	}

	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return DefaultMapping(), errors.Wrapf(err, "parse category mapping %s", path)
	}
	return mapping, nil
}
