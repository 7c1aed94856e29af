package adaptor

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/guregu/dynamo"
	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/errors"
)

// Repository is run ledger storage.
type Repository interface {
	PutRun(run *threatgraph.RunRecord) error
	GetRun(runID threatgraph.RunID) (*threatgraph.RunRecord, error)
}

type RepositoryFactory func(region, tableName string) (Repository, error)

func NewDynamoRepository(region, tableName string) (Repository, error) {
	ssn, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}

	return &DynamoRepository{
		table: dynamo.New(ssn).Table(tableName),
	}, nil
}

type DynamoRepository struct {
	table dynamo.Table
}

const (
	dynamoHashKey  = "pk"
	dynamoRangeKey = "sk"
	runTimeToLive  = time.Hour * 24 * 30
	runSummaryKey  = "summary"
)

type dynamoItem struct {
	PK        string `dynamo:"pk"`
	SK        string `dynamo:"sk"`
	ExpiresAt int64  `dynamo:"expires_at"`
}

func (x *dynamoItem) HashKey() interface{}  { return x.PK }
func (x *dynamoItem) RangeKey() interface{} { return x.SK }

type runItem struct {
	dynamoItem
	threatgraph.RunRecord
}

func makeRunPKey(runID threatgraph.RunID) string {
	return fmt.Sprintf("run/%s", runID)
}

func (x *DynamoRepository) PutRun(run *threatgraph.RunRecord) error {
	item := &runItem{
		dynamoItem: dynamoItem{
			PK:        makeRunPKey(run.RunID),
			SK:        runSummaryKey,
			ExpiresAt: time.Unix(run.CreatedAt, 0).Add(runTimeToLive).Unix(),
		},
		RunRecord: *run,
	}

	if err := x.table.Put(item).Run(); err != nil {
		return errors.Wrap(err, "PutRun").With("run_id", run.RunID)
	}
	return nil
}

// GetRun returns nil without error if the run is not found.
func (x *DynamoRepository) GetRun(runID threatgraph.RunID) (*threatgraph.RunRecord, error) {
	pk := makeRunPKey(runID)

	var item runItem
	if err := x.table.Get(dynamoHashKey, pk).Range(dynamoRangeKey, dynamo.Equal, runSummaryKey).One(&item); err != nil {
		if err == dynamo.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "GetRun").With("pk", pk)
	}

	return &item.RunRecord, nil
}
