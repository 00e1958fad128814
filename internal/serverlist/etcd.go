package serverlist

import (
	"context"
	"encoding/json"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// DefaultEtcdPrefix is the key prefix EtcdProvider stores servers under:
//
//	{prefix}{protocol}/{addr} -> JSON ServerRecord
const DefaultEtcdPrefix = "/steamkit/servers/"

// EtcdProvider shares the server list between processes through etcd.
type EtcdProvider struct {
	client *clientv3.Client
	prefix string
}

func NewEtcdProvider(endpoints []string, prefix string) (*EtcdProvider, error) {
	c, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultEtcdPrefix
	}
	return &EtcdProvider{client: c, prefix: prefix}, nil
}

func (p *EtcdProvider) Close() error { return p.client.Close() }

func (p *EtcdProvider) key(r ServerRecord) string {
	return p.prefix + string(r.Protocol) + "/" + r.Addr
}

func (p *EtcdProvider) Fetch(ctx context.Context) ([]ServerRecord, error) {
	resp, err := p.client.Get(ctx, p.prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	out := make([]ServerRecord, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var r ServerRecord
		if err := json.Unmarshal(kv.Value, &r); err != nil {
			continue // skip malformed entries
		}
		out = append(out, r)
	}
	return out, nil
}

// Update replaces every stored server in one transaction.
func (p *EtcdProvider) Update(ctx context.Context, servers []ServerRecord) error {
	current, err := p.client.Get(ctx, p.prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(servers))
	var ops []clientv3.Op
	for _, r := range servers {
		k := p.key(r)
		if keep[k] {
			continue
		}
		keep[k] = true
		val, err := json.Marshal(r)
		if err != nil {
			return err
		}
		ops = append(ops, clientv3.OpPut(k, string(val)))
	}
	for _, kv := range current.Kvs {
		if !keep[string(kv.Key)] {
			ops = append(ops, clientv3.OpDelete(string(kv.Key)))
		}
	}
	resp, err := p.client.Txn(ctx).Then(ops...).Commit()
	if err != nil {
		return err
	}
	if !resp.Succeeded {
		return fmt.Errorf("serverlist: etcd update not applied")
	}
	return nil
}

// Watch emits the full list whenever another process updates it. The channel
// is closed when ctx is done.
func (p *EtcdProvider) Watch(ctx context.Context) <-chan []ServerRecord {
	ch := make(chan []ServerRecord, 1)
	go func() {
		defer close(ch)
		for range p.client.Watch(ctx, p.prefix, clientv3.WithPrefix()) {
			servers, err := p.Fetch(ctx)
			if err != nil {
				continue
			}
			select {
			case ch <- servers:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
