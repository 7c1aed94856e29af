package arguments

import (
	"context"
	"net/http"

	"github.com/Netflix/go-env"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/graph"
	"github.com/m-mizutani/threatgraph/pkg/service"
)

// Arguments has environment variables and factories of external systems. Services
// are built from it.
type Arguments struct {
	Neo4jURI       string `env:"NEO4J_URI"`
	Neo4jUser      string `env:"NEO4J_USER"`
	Neo4jPassword  string `env:"NEO4J_PASSWORD"`
	Neo4jDatabase  string `env:"NEO4J_DATABASE"`
	GraphWriteMode string `env:"GRAPH_WRITE_MODE"`

	RunTableName    string `env:"RUN_TABLE_NAME"`
	RunTopicARN     string `env:"RUN_TOPIC_ARN"`
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	AuditDir        string `env:"AUDIT_DIR"`
	AuditBucket     string `env:"AUDIT_BUCKET"`
	AuditPrefix     string `env:"AUDIT_PREFIX"`
	AwsRegion       string `env:"AWS_REGION"`

	SentryDSN string `env:"SENTRY_DSN"`
	SentryEnv string `env:"SENTRY_ENVIRONMENT"`

	// Set them to replace external systems, e.g. with pkg/mock in tests.
	NewGraphSession adaptor.GraphSessionFactory `env:"-"`
	NewRepository   adaptor.RepositoryFactory   `env:"-"`
	NewS3           adaptor.S3ClientFactory     `env:"-"`
	NewSNS          adaptor.SNSClientFactory    `env:"-"`
	HTTP            adaptor.HTTPClient          `env:"-"`

	driver *adaptor.Neo4jDriver
	repo   adaptor.Repository
}

// -----------------------
// Data binding

// New binds environment variables to a new Arguments
func New() (*Arguments, error) {
	args := &Arguments{}
	if err := args.BindEnv(); err != nil {
		return nil, err
	}
	return args, nil
}

// BindEnv overwrites fields by environment variables.
func (x *Arguments) BindEnv() error {
	if _, err := env.UnmarshalFromEnviron(x); err != nil {
		return errors.Wrap(err, "Unmarshal environ vars")
	}
	return nil
}

// Validate checks only presence of required values. Neo4j settings are not
// required when NewGraphSession is set.
func (x *Arguments) Validate() error {
	if x.NewGraphSession == nil {
		required := []struct {
			key   string
			value string
		}{
			{"NEO4J_URI", x.Neo4jURI},
			{"NEO4J_USER", x.Neo4jUser},
			{"NEO4J_PASSWORD", x.Neo4jPassword},
		}
		for _, r := range required {
			if r.value == "" {
				return errors.New("Required environment variable is not set").With("key", r.key)
			}
		}
	}

	if _, err := x.Mode(); err != nil {
		return err
	}
	if x.RunTopicARN != "" && x.AwsRegion == "" && x.NewSNS == nil {
		return errors.New("AWS_REGION is required with RUN_TOPIC_ARN")
	}
	if (x.AuditBucket != "" || x.RunTableName != "") && x.AwsRegion == "" {
		return errors.New("AWS_REGION is required with AUDIT_BUCKET or RUN_TABLE_NAME")
	}

	return nil
}

// Mode returns write mode of threat nodes. Empty GRAPH_WRITE_MODE is create.
func (x *Arguments) Mode() (graph.Mode, error) {
	switch graph.Mode(x.GraphWriteMode) {
	case "", graph.ModeCreate:
		return graph.ModeCreate, nil
	case graph.ModeMerge:
		return graph.ModeMerge, nil
	default:
		return "", errors.New("Invalid GRAPH_WRITE_MODE").With("mode", x.GraphWriteMode)
	}
}

// -----------------------
// Adaptors

// GraphSessionFactory returns NewGraphSession if set. Otherwise it connects to
// Neo4j once and returns factory of the driver.
func (x *Arguments) GraphSessionFactory(ctx context.Context) (adaptor.GraphSessionFactory, error) {
	if x.NewGraphSession != nil {
		return x.NewGraphSession, nil
	}

	if x.driver == nil {
		driver, err := adaptor.NewNeo4jDriver(ctx, adaptor.Neo4jConfig{
			URI:      x.Neo4jURI,
			Username: x.Neo4jUser,
			Password: x.Neo4jPassword,
			Database: x.Neo4jDatabase,
		})
		if err != nil {
			return nil, err
		}
		x.driver = driver
	}

	return x.driver.NewSession, nil
}

// Close releases Neo4j driver if it is opened.
func (x *Arguments) Close(ctx context.Context) error {
	if x.driver == nil {
		return nil
	}
	err := x.driver.Close(ctx)
	x.driver = nil
	return err
}

func (x *Arguments) HTTPClient() adaptor.HTTPClient {
	client := x.HTTP
	if client == nil {
		client = &http.Client{}
	}
	return client
}

// -----------------------
// Services

func (x *Arguments) ThreatService(ctx context.Context) (*service.ThreatService, error) {
	mode, err := x.Mode()
	if err != nil {
		return nil, err
	}
	newSession, err := x.GraphSessionFactory(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewThreatService(newSession, service.WithMode(mode)), nil
}

func (x *Arguments) PatternService(ctx context.Context) (*service.PatternService, error) {
	newSession, err := x.GraphSessionFactory(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewPatternService(newSession), nil
}

func (x *Arguments) SchemaService(ctx context.Context) (*service.SchemaService, error) {
	newSession, err := x.GraphSessionFactory(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewSchemaService(newSession), nil
}

// AuditService returns nil if neither AUDIT_BUCKET nor AUDIT_DIR is set. S3 is
// preferred when both are set.
func (x *Arguments) AuditService() *service.AuditService {
	switch {
	case x.AuditBucket != "":
		newS3 := x.NewS3
		if newS3 == nil {
			newS3 = adaptor.NewS3Client
		}
		return service.NewAuditService(adaptor.NewS3Store(newS3, x.AwsRegion, x.AuditBucket, x.AuditPrefix))
	case x.AuditDir != "":
		return service.NewAuditService(adaptor.NewFileStore(x.AuditDir))
	default:
		return nil
	}
}

// RunService returns nil without error if RUN_TABLE_NAME is not set.
func (x *Arguments) RunService() (*service.RunService, error) {
	if x.repo == nil {
		if x.RunTableName == "" {
			return nil, nil
		}
		newRepo := x.NewRepository
		if newRepo == nil {
			newRepo = adaptor.NewDynamoRepository
		}
		repo, err := newRepo(x.AwsRegion, x.RunTableName)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to create run repository").With("table", x.RunTableName)
		}
		x.repo = repo
	}
	return service.NewRunService(x.repo), nil
}

// SNSService returns a new *service.SNSService. Topic is given by RunTopicARN at publishing.
func (x *Arguments) SNSService() *service.SNSService {
	factory := x.NewSNS
	if factory == nil {
		factory = adaptor.NewSNSClient
	}
	return service.NewSNSService(factory)
}

// AlertService returns nil if SLACK_WEBHOOK_URL is not set.
func (x *Arguments) AlertService() *service.AlertService {
	if x.SlackWebhookURL == "" {
		return nil
	}
	return service.NewAlertService(&service.AlertServiceArguments{
		HTTPClient:              x.HTTPClient(),
		SlackIncomingWebhookURL: x.SlackWebhookURL,
	})
}

// IngestService wires all configured services.
func (x *Arguments) IngestService(ctx context.Context) (*service.IngestService, error) {
	threatSvc, err := x.ThreatService(ctx)
	if err != nil {
		return nil, err
	}
	runSvc, err := x.RunService()
	if err != nil {
		return nil, err
	}

	args := &service.IngestServiceArguments{
		Threat:      threatSvc,
		Audit:       x.AuditService(),
		Run:         runSvc,
		RunTopicARN: x.RunTopicARN,
		Alert:       x.AlertService(),
	}
	if x.RunTopicARN != "" {
		args.SNS = x.SNSService()
	}

	return service.NewIngestService(args), nil
}
