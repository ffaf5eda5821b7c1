// Package nodes 从应用配置中读取一组具名的节点连接参数。
//
// 配置形如：
//
//	nodeconf:
//	  nodes:
//	    partya:
//	      address: localhost:10006
//	      username: user1
//	      password: test
//	    partyb:
//	      address: localhost:10009
//	      primary_service_type: custom
//
// 节点名不区分大小写（Viper 统一转为小写）。每个字段都可以被环境变量
// 或命令行 flag 覆盖，例如 NODECONF_NODECONF_NODES_PARTYA_PASSWORD，
// 但只出现在环境变量中的节点不会被发现。
package nodes

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/ceyewan/nodeconf/nodeparams"
)

// DefaultKey 节点集合在配置中的默认根 key
const DefaultKey = "nodeconf.nodes"

// Nodes 一组按名称索引的 NodeParams 快照。
//
// 快照创建后不可变，Get/All 返回副本，可在多个协程间共享。
type Nodes struct {
	byName map[string]*nodeparams.NodeParams
	names  []string
}

// New 由给定映射创建快照，映射中的值会被复制
func New(m map[string]*nodeparams.NodeParams) *Nodes {
	n := &Nodes{byName: make(map[string]*nodeparams.NodeParams, len(m))}
	for name, p := range m {
		if p == nil {
			p = nodeparams.New()
		}
		n.byName[name] = p.Clone()
		n.names = append(n.names, name)
	}
	sort.Strings(n.names)
	return n
}

// Len 返回节点数量
func (n *Nodes) Len() int { return len(n.names) }

// Names 返回按字典序排列的节点名
func (n *Nodes) Names() []string {
	return append([]string(nil), n.names...)
}

// Get 返回指定节点参数的副本
func (n *Nodes) Get(name string) (*nodeparams.NodeParams, bool) {
	p, ok := n.byName[name]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// All 返回全部节点参数的副本
func (n *Nodes) All() map[string]*nodeparams.NodeParams {
	out := make(map[string]*nodeparams.NodeParams, len(n.byName))
	for name, p := range n.byName {
		out[name] = p.Clone()
	}
	return out
}

// String 按节点名排序列出每个节点的屏蔽形式
func (n *Nodes) String() string {
	var b strings.Builder
	b.WriteString("Nodes{")
	for i, name := range n.names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(n.byName[name].Redacted())
	}
	b.WriteString("}")
	return b.String()
}

// LogValue 实现 slog.LogValuer，每个节点作为一个分组输出
func (n *Nodes) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(n.names))
	for _, name := range n.names {
		attrs = append(attrs, slog.Attr{Key: name, Value: n.byName[name].LogValue()})
	}
	return slog.GroupValue(attrs...)
}

// Diff 比较两个快照，返回新增、删除和取值变化的节点名（均已排序）。
// prev 为 nil 时所有节点都视为新增。
func Diff(prev, next *Nodes) (added, removed, changed []string) {
	if prev == nil {
		prev = New(nil)
	}
	if next == nil {
		next = New(nil)
	}
	for _, name := range next.names {
		old, ok := prev.byName[name]
		switch {
		case !ok:
			added = append(added, name)
		case !old.Equal(next.byName[name]):
			changed = append(changed, name)
		}
	}
	for _, name := range prev.names {
		if _, ok := next.byName[name]; !ok {
			removed = append(removed, name)
		}
	}
	return added, removed, changed
}
