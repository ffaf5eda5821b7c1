package metrics

// Label 指标标签
//
// 标签值应当相对稳定，节点名这类有限集合可以作为标签，
// 而地址、用户名等可能包含敏感信息的字段不应作为标签。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数，创建一个 Label 实例
//
//	counter.Inc(ctx, metrics.L("result", "ok"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
