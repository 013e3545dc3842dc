package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/guregu/dynamo/v2"
)

const (
	groupIndexName = "grp-index"
	// TransactWriteItems limit
	maxTxItems = 100
)

// DdbStore keeps every document in one DynamoDB table, pk = collection
// path and sk = document id. A transaction commits as a single
// TransactWriteItems call:
//   - a written document that was read, or whose collection is indexed, is
//     Put conditioned on the version it was read at
//   - a blind merge into any other document is an unconditioned Update
//     that SETs and ADDs single leaves and bumps the version, so writers
//     never contend on counters while readers still see the change
//   - a document only read gets a ConditionCheck on its version
type DdbStore struct {
	logger      *slog.Logger
	maxAttempts int
	indexes     map[string][]Index

	ddbClient *dynamodb.Client
	tableName string
	db        *dynamo.DB
	table     dynamo.Table
}

type DdbStoreOption func(*DdbStore)

func WithIndexes(indexes ...Index) DdbStoreOption {
	return func(s *DdbStore) {
		for _, idx := range indexes {
			s.indexes[idx.Collection] = append(s.indexes[idx.Collection], idx)
		}
	}
}

func NewDdbStore(ddbClient *dynamodb.Client, tableName string, maxAttempts int, opts ...DdbStoreOption) *DdbStore {
	db := dynamo.NewFromIface(ddbClient)
	s := &DdbStore{
		logger:      slog.Default().With("module", "ddbstore"),
		maxAttempts: maxAttempts,
		indexes:     make(map[string][]Index),
		ddbClient:   ddbClient,
		tableName:   tableName,
		db:          db,
		table:       db.Table(tableName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureTable creates the table with its collection-group index if it
// does not exist yet.
func (s *DdbStore) EnsureTable(ctx context.Context) error {
	_, err := s.ddbClient.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe table: %w", err)
	}

	_, err = s.ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("grp"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(groupIndexName),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("grp"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	s.logger.Info("created document table", "table", s.tableName)
	return nil
}

func (s *DdbStore) Get(ctx context.Context, ref Ref) (*Doc, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	var item dynamo.Item
	err := s.table.Get("pk", ref.CollPath).
		Range("sk", dynamo.Equal, ref.ID).
		Consistent(true).
		One(ctx, &item)
	if err != nil {
		if errors.Is(err, dynamo.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", ref, err)
	}
	return decodeItem(ref, item)
}

func (s *DdbStore) Set(ctx context.Context, ref Ref, fields Fields, opts ...SetOption) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		tx.Set(ref, fields, opts...)
		return nil
	})
}

// queryPlan is where a query reads from: the collection partition, the
// group index or the partition of a declared index.
type queryPlan struct {
	pk      string
	group   bool
	viaColl string // set when pk is an index partition
	filters []filter
}

func (s *DdbStore) planQuery(q Query) queryPlan {
	plan := queryPlan{pk: q.source, group: q.group, filters: q.filters}
	if q.group {
		return plan
	}
	best := -1
	for _, idx := range s.indexes[q.source] {
		pk, rest, ok := idx.queryPartition(q.filters)
		if ok && len(idx.Fields) > best {
			best = len(idx.Fields)
			plan = queryPlan{pk: pk, viaColl: q.source, filters: rest}
		}
	}
	return plan
}

func (s *DdbStore) Query(ctx context.Context, q Query) ([]*Doc, error) {
	plan := s.planQuery(q)
	input := &dynamodb.QueryInput{
		TableName: aws.String(s.tableName),
	}
	var keyCond expression.KeyConditionBuilder
	if plan.group {
		keyCond = expression.Key("grp").Equal(expression.Value(plan.pk))
		input.IndexName = aws.String(groupIndexName)
	} else {
		keyCond = expression.Key("pk").Equal(expression.Value(plan.pk))
		input.ConsistentRead = aws.Bool(true)
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if cond, ok := filterCondition(plan.filters); ok {
		builder = builder.WithFilter(cond)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}
	input.KeyConditionExpression = expr.KeyCondition()
	input.FilterExpression = expr.Filter()
	input.ExpressionAttributeNames = expr.Names()
	input.ExpressionAttributeValues = expr.Values()

	var docs []*Doc
	paginator := dynamodb.NewQueryPaginator(s.ddbClient, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query items: %w", err)
		}
		for _, item := range page.Items {
			ref := Ref{CollPath: itemString(item, "pk"), ID: itemString(item, "sk")}
			if plan.viaColl != "" {
				// copies answer for the document they were taken from
				ref.CollPath = plan.viaColl
			}
			doc, err := decodeItem(ref, item)
			if err != nil {
				return nil, err
			}
			// the filter expression already matched, this drops rows
			// missing an ordering field
			if q.matchesFilters(doc.Data) {
				docs = append(docs, doc)
			}
		}
	}
	return q.finish(docs), nil
}

func filterCondition(filters []filter) (expression.ConditionBuilder, bool) {
	conds := make([]expression.ConditionBuilder, 0, len(filters))
	for _, f := range filters {
		conds = append(conds, expression.NameNoDotSplit(fieldPrefix+f.field).Equal(expression.Value(f.value)))
	}
	switch len(conds) {
	case 0:
		return expression.ConditionBuilder{}, false
	case 1:
		return conds[0], true
	default:
		return expression.And(conds[0], conds[1], conds[2:]...), true
	}
}

func (s *DdbStore) RunTransaction(ctx context.Context, fn TxFunc) error {
	return runWithRetry(ctx, s.logger, s.maxAttempts, func() error {
		tx := &ddbTx{
			store: s,
			reads: make(map[string]*Doc),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return s.commit(ctx, tx)
	})
}

// docWrites are the writes of one transaction to one document, in order.
type docWrites struct {
	ref    Ref
	writes []write
}

func groupWrites(writes []write) ([]*docWrites, error) {
	var res []*docWrites
	byPath := make(map[string]*docWrites)
	for _, w := range writes {
		if err := w.ref.validate(); err != nil {
			return nil, err
		}
		path := w.ref.Path()
		dw, ok := byPath[path]
		if !ok {
			dw = &docWrites{ref: w.ref}
			byPath[path] = dw
			res = append(res, dw)
		}
		dw.writes = append(dw.writes, w)
	}
	return res, nil
}

// needsBase reports whether writing the document requires its current
// content: replacing writes pin the version they overwrite and indexed
// collections must know which copies to move.
func (s *DdbStore) needsBase(dw *docWrites) bool {
	if len(s.indexes[dw.ref.CollPath]) > 0 {
		return true
	}
	for _, w := range dw.writes {
		if !w.merge {
			return true
		}
	}
	return false
}

func (s *DdbStore) commit(ctx context.Context, tx *ddbTx) error {
	if len(tx.writes) == 0 {
		return nil
	}
	docs, err := groupWrites(tx.writes)
	if err != nil {
		return err
	}

	bases := make(map[string]*Doc)
	for _, dw := range docs {
		path := dw.ref.Path()
		if _, read := tx.reads[path]; read || !s.needsBase(dw) {
			continue
		}
		base, err := s.Get(ctx, dw.ref)
		if err != nil {
			return err
		}
		if base == nil {
			base = &Doc{Ref: dw.ref}
		}
		bases[path] = base
	}

	items, err := s.transactItems(docs, tx.reads, bases)
	if err != nil {
		return err
	}
	_, err = s.ddbClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		if isConflict(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// transactItems builds the commit of a transaction. A document is Put when
// its content is known from reads or bases and updated blindly otherwise.
func (s *DdbStore) transactItems(docs []*docWrites, reads, bases map[string]*Doc) ([]types.TransactWriteItem, error) {
	var items []types.TransactWriteItem
	written := make(map[string]bool, len(docs))
	for _, dw := range docs {
		path := dw.ref.Path()
		written[path] = true
		base, ok := reads[path]
		if !ok {
			base, ok = bases[path]
		}
		var (
			res []types.TransactWriteItem
			err error
		)
		switch {
		case ok:
			res, err = s.putItems(dw, base)
		case s.needsBase(dw):
			err = fmt.Errorf("content of %s was not loaded before commit", path)
		default:
			var item types.TransactWriteItem
			item, err = s.blindUpdate(dw)
			res = []types.TransactWriteItem{item}
		}
		if err != nil {
			return nil, err
		}
		items = append(items, res...)
	}

	for path, doc := range reads {
		if written[path] {
			continue
		}
		cond, err := versionCondition(doc.Version)
		if err != nil {
			return nil, err
		}
		items = append(items, types.TransactWriteItem{
			ConditionCheck: &types.ConditionCheck{
				TableName:                 aws.String(s.tableName),
				Key:                       keyAttrs(doc.Ref.CollPath, doc.Ref.ID),
				ConditionExpression:       cond.Condition(),
				ExpressionAttributeNames:  cond.Names(),
				ExpressionAttributeValues: cond.Values(),
			},
		})
	}
	if len(items) > maxTxItems {
		return nil, fmt.Errorf("transaction touches %d items, limit is %d", len(items), maxTxItems)
	}
	return items, nil
}

func versionCondition(version int64) (expression.Expression, error) {
	cond := expression.AttributeNotExists(expression.Name("version"))
	if version > 0 {
		cond = expression.Name("version").Equal(expression.Value(version))
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("failed to build version condition: %w", err)
	}
	return expr, nil
}

// putItems replaces the document conditioned on the base version and keeps
// its index copies in step.
func (s *DdbStore) putItems(dw *docWrites, base *Doc) ([]types.TransactWriteItem, error) {
	data := base.Data
	for _, w := range dw.writes {
		data = applyWrite(data, w)
	}
	version := base.Version + 1

	item, err := encodeItem(dw.ref.CollPath, dw.ref.ID, dw.ref.Group(), data, version)
	if err != nil {
		return nil, err
	}
	cond, err := versionCondition(base.Version)
	if err != nil {
		return nil, err
	}
	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:                 aws.String(s.tableName),
			Item:                      item,
			ConditionExpression:       cond.Condition(),
			ExpressionAttributeNames:  cond.Names(),
			ExpressionAttributeValues: cond.Values(),
		},
	}}

	for _, idx := range s.indexes[dw.ref.CollPath] {
		newPk, hasNew := idx.docPartition(data)
		if oldPk, hasOld := idx.docPartition(base.Data); hasOld && (!hasNew || oldPk != newPk) {
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(s.tableName),
					Key:       keyAttrs(oldPk, dw.ref.ID),
				},
			})
		}
		if !hasNew {
			continue
		}
		cp, err := encodeItem(newPk, dw.ref.ID, "", data, version)
		if err != nil {
			return nil, err
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(s.tableName),
				Item:      cp,
			},
		})
	}
	return items, nil
}

// blindUpdate merges the writes into the document without reading it.
func (s *DdbStore) blindUpdate(dw *docWrites) (types.TransactWriteItem, error) {
	ops := make(map[string]fieldOp)
	for _, w := range dw.writes {
		foldMerge(ops, "", w.fields)
	}

	update := expression.Set(expression.Name("grp"), expression.Value(dw.ref.Group())).
		Add(expression.Name("version"), expression.Value(1))
	for path, op := range ops {
		name := expression.NameNoDotSplit(fieldPrefix + path)
		if op.isAdd {
			update = update.Add(name, expression.Value(op.add))
		} else {
			update = update.Set(name, expression.Value(op.value))
		}
	}
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to build update of %s: %w", dw.ref, err)
	}
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(s.tableName),
			Key:                       keyAttrs(dw.ref.CollPath, dw.ref.ID),
			UpdateExpression:          expr.Update(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		},
	}, nil
}

func isConflict(err error) bool {
	if dynamo.IsCondCheckFailed(err) {
		return true
	}
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if reason.Code == nil {
				continue
			}
			switch *reason.Code {
			case "ConditionalCheckFailed", "TransactionConflict":
				return true
			}
		}
	}
	var conflict *types.TransactionConflictException
	return errors.As(err, &conflict)
}

type ddbTx struct {
	store *DdbStore
	// documents read so far by path; a nil Data with Version 0 marks a
	// document read as absent
	reads  map[string]*Doc
	writes []write
}

func (tx *ddbTx) Get(ctx context.Context, ref Ref) (*Doc, error) {
	if len(tx.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	doc, err := tx.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		tx.reads[ref.Path()] = &Doc{Ref: ref}
		return nil, nil
	}
	tx.reads[ref.Path()] = cloneDoc(doc)
	return doc, nil
}

func (tx *ddbTx) Query(ctx context.Context, q Query) ([]*Doc, error) {
	if len(tx.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	docs, err := tx.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		tx.reads[d.Ref.Path()] = cloneDoc(d)
	}
	return docs, nil
}

func (tx *ddbTx) Set(ref Ref, fields Fields, opts ...SetOption) {
	o := collectSetOptions(opts)
	tx.writes = append(tx.writes, write{ref: ref, fields: fields, merge: o.merge})
}
