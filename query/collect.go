package query

// AggregationSpec is one aggregate computation shared by every output name
// that refers to it.
type AggregationSpec struct {
	Aggregate    string
	Source       string
	OutputFields []string // distinct, in first-seen order
}

// Key returns the (aggregate, source) identity used to merge specs.
func (s *AggregationSpec) Key() string {
	return AggregateKey(s.Aggregate, s.Source)
}

func (s *AggregationSpec) addOutput(name string) {
	for _, existing := range s.OutputFields {
		if existing == name {
			return
		}
	}
	s.OutputFields = append(s.OutputFields, name)
}

// CollectAggregations returns the aggregations a query needs: aggregate
// fields of the SELECT list followed by aggregates referenced in having and
// in any extra expressions (ORDER BY keys), merged by (aggregate, source).
func CollectAggregations(fields []OutputField, having Expression, extra ...Expression) []*AggregationSpec {
	var specs []*AggregationSpec
	byKey := make(map[string]*AggregationSpec)

	add := func(aggregate, source, outputName string) {
		key := AggregateKey(aggregate, source)
		spec, ok := byKey[key]
		if !ok {
			spec = &AggregationSpec{Aggregate: aggregate, Source: source}
			byKey[key] = spec
			specs = append(specs, spec)
		}
		spec.addOutput(outputName)
	}

	for _, f := range fields {
		if f.IsAggregate() {
			add(f.Aggregate, f.Source, f.OutputName)
		}
	}
	for _, expr := range append([]Expression{having}, extra...) {
		for _, agg := range collectAggregates(expr, nil) {
			add(agg.Aggregate, agg.Source, AggregateKey(agg.Aggregate, agg.Source))
		}
	}
	return specs
}

// collectAggregates walks expr depth first (lhs, rhs, ths, list items in
// order) appending every Aggregate node to acc.
func collectAggregates(expr Expression, acc []*Aggregate) []*Aggregate {
	switch e := expr.(type) {
	case *Aggregate:
		if e != nil {
			acc = append(acc, e)
		}
	case *Operator:
		if e != nil {
			for _, operand := range e.operands() {
				acc = collectAggregates(operand, acc)
			}
		}
	case *List:
		if e != nil {
			for _, item := range e.Items {
				acc = collectAggregates(item, acc)
			}
		}
	}
	return acc
}
