package pipeline

// Fallback is substituted whenever no usable pipeline can be recovered:
// total actual production per production line, largest first.
func Fallback() Pipeline {
	return Pipeline{
		{Value: Object(
			F("$group", Object(
				F("_id", String("$production_line")),
				F("total_production", Object(F("$sum", String("$actual_production")))),
			)),
		)},
		{Value: Object(
			F("$sort", Object(F("total_production", Int(-1)))),
		)},
	}
}
