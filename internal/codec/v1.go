package codec

import (
	"encoding/json"
	"fmt"

	"github.com/emrgen/nitro-sub000/internal/bimap"
	"github.com/emrgen/nitro-sub000/internal/diff"
	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
	"github.com/emrgen/nitro-sub000/internal/state"
	"github.com/emrgen/nitro-sub000/internal/store"
)

// Item flag layout: high nibble carries the kind, low nibble the presence
// bits for content, field, left origin and right origin.
const (
	flagContent = 1 << 3
	flagField   = 1 << 2
	flagLeft    = 1 << 1
	flagRight   = 1 << 0
)

// Content variant tags.
const (
	contentTagString = 1
	contentTagBinary = 2
	contentTagValue  = 3
	contentTagDoc    = 4
)

// EncodeDiff writes a diff as: header, document id, creating client, field
// table, state vector, client table, items, deletes.
func EncodeDiff(d *diff.Diff) ([]byte, error) {
	e := NewEncoder()

	e.String(d.GUID)
	e.String(d.CreatedBy)

	encodeTable(e, d.Fields)
	encodeState(e, d.State)
	encodeTable(e, d.State.Clients)

	e.U32(uint32(d.ItemCount()))
	for _, cid := range d.Clients() {
		for _, data := range d.Items[cid] {
			if err := encodeItem(e, data); err != nil {
				return nil, err
			}
		}
	}

	e.U32(uint32(d.DeleteCount()))
	for _, cid := range d.DeleteClients() {
		for _, del := range d.Deletes[cid] {
			encodeDelete(e, del)
		}
	}

	return e.Buffer(), nil
}

// DecodeDiff is the inverse of EncodeDiff. A malformed buffer yields
// ErrDecode and no partial diff.
func DecodeDiff(buf []byte) (*diff.Diff, error) {
	d, err := NewDecoder(buf)
	if err != nil {
		return nil, err
	}

	guid, err := d.String()
	if err != nil {
		return nil, err
	}
	createdBy, err := d.String()
	if err != nil {
		return nil, err
	}

	out := diff.New(guid, createdBy)

	if out.Fields, err = decodeTable(d); err != nil {
		return nil, err
	}
	clocks, err := decodeClocks(d)
	if err != nil {
		return nil, err
	}
	clients, err := decodeTable(d)
	if err != nil {
		return nil, err
	}
	out.State = state.New()
	out.State.Clients = clients
	for cid, clock := range clocks {
		out.State.Update(cid, clock)
	}

	itemCount, err := d.U32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < itemCount; i++ {
		data, err := decodeItem(d)
		if err != nil {
			return nil, err
		}
		out.Items[data.ID.Client] = append(out.Items[data.ID.Client], data)
	}

	deleteCount, err := d.U32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < deleteCount; i++ {
		del, err := decodeDelete(d)
		if err != nil {
			return nil, err
		}
		out.Deletes[del.ID.Client] = append(out.Deletes[del.ID.Client], del)
	}

	return out, nil
}

func encodeTable(e *Encoder, t *bimap.Table) {
	keys := t.Keys()
	e.U32(uint32(len(keys)))
	for _, key := range keys {
		kid, _ := t.Get(key)
		e.String(key)
		e.U32(kid)
	}
}

func decodeTable(d *Decoder) (*bimap.Table, error) {
	count, err := d.U32()
	if err != nil {
		return nil, err
	}
	out := bimap.New()
	for i := uint32(0); i < count; i++ {
		key, err := d.String()
		if err != nil {
			return nil, err
		}
		kid, err := d.U32()
		if err != nil {
			return nil, err
		}
		if got := out.GetOrInsert(key); got != kid {
			return nil, fmt.Errorf("%w: non-dense table entry %q=%d", ErrDecode, key, kid)
		}
	}
	return out, nil
}

func encodeState(e *Encoder, s *state.State) {
	cids := s.ClientIds()
	e.U32(uint32(len(cids)))
	for _, cid := range cids {
		e.U32(cid)
		e.U32(s.Get(cid))
	}
}

func decodeClocks(d *Decoder) (map[id.ClientId]id.Clock, error) {
	count, err := d.U32()
	if err != nil {
		return nil, err
	}
	out := make(map[id.ClientId]id.Clock, count)
	for i := uint32(0); i < count; i++ {
		cid, err := d.U32()
		if err != nil {
			return nil, err
		}
		clock, err := d.U32()
		if err != nil {
			return nil, err
		}
		out[cid] = clock
	}
	return out, nil
}

func encodeItem(e *Encoder, data *item.Data) error {
	flags := uint8(data.Kind) << 4
	if !data.Content.IsNull() {
		flags |= flagContent
	}
	if data.HasField {
		flags |= flagField
	}
	if data.LeftID != nil {
		flags |= flagLeft
	}
	if data.RightID != nil {
		flags |= flagRight
	}
	e.U8(flags)

	if !data.Content.IsNull() {
		if err := encodeContent(e, data.Content); err != nil {
			return err
		}
	}
	if data.HasField {
		e.U32(data.Field)
	}

	encodeId(e, data.ID)

	// One of the left origin or the parent; the root carries neither.
	switch {
	case data.LeftID != nil:
		encodeId(e, *data.LeftID)
	case data.ParentID != nil:
		encodeId(e, *data.ParentID)
	case !data.IsRoot():
		return fmt.Errorf("codec: item %s has neither left origin nor parent", data.ID)
	}

	if data.RightID != nil {
		encodeId(e, *data.RightID)
	}

	// The kind implies the reference fields: movers and proxies point at
	// the relocated item, marks at their first covered character.
	if data.Kind == item.KindMove || data.Kind == item.KindProxy || data.Kind == item.KindMark {
		if data.TargetID == nil {
			return fmt.Errorf("codec: %s item %s has no target", data.Kind, data.ID)
		}
		encodeId(e, *data.TargetID)
	}
	if data.Kind == item.KindProxy {
		if data.MoverID == nil {
			return fmt.Errorf("codec: proxy item %s has no mover", data.ID)
		}
		encodeId(e, *data.MoverID)
	}

	return nil
}

func decodeItem(d *Decoder) (*item.Data, error) {
	flags, err := d.U8()
	if err != nil {
		return nil, err
	}

	kind := item.Kind(flags >> 4)
	if kind > item.KindDoc {
		return nil, fmt.Errorf("%w: unknown item kind %d", ErrDecode, kind)
	}
	data := &item.Data{Kind: kind, Content: item.NullContent()}

	if flags&flagContent != 0 {
		if data.Content, err = decodeContent(d); err != nil {
			return nil, err
		}
	}
	if flags&flagField != 0 {
		if data.Field, err = d.U32(); err != nil {
			return nil, err
		}
		data.HasField = true
	}

	if data.ID, err = decodeId(d); err != nil {
		return nil, err
	}

	isRoot := data.IsRoot()
	switch {
	case flags&flagLeft != 0:
		left, err := decodeId(d)
		if err != nil {
			return nil, err
		}
		data.LeftID = &left
	case !isRoot:
		parent, err := decodeId(d)
		if err != nil {
			return nil, err
		}
		data.ParentID = &parent
	}

	if flags&flagRight != 0 {
		right, err := decodeId(d)
		if err != nil {
			return nil, err
		}
		data.RightID = &right
	}

	if kind == item.KindMove || kind == item.KindProxy || kind == item.KindMark {
		target, err := decodeId(d)
		if err != nil {
			return nil, err
		}
		data.TargetID = &target
	}
	if kind == item.KindProxy {
		mover, err := decodeId(d)
		if err != nil {
			return nil, err
		}
		data.MoverID = &mover
	}

	return data, nil
}

func encodeId(e *Encoder, i id.Id) {
	e.U32(i.Client)
	e.U32(i.Clock)
}

func decodeId(d *Decoder) (id.Id, error) {
	client, err := d.U32()
	if err != nil {
		return id.Id{}, err
	}
	clock, err := d.U32()
	if err != nil {
		return id.Id{}, err
	}
	return id.New(client, clock), nil
}

func encodeDelete(e *Encoder, del store.Delete) {
	encodeId(e, del.ID)
	e.U32(del.Range.Client)
	e.U32(del.Range.Start)
	e.U32(del.Range.Size())
}

func decodeDelete(d *Decoder) (store.Delete, error) {
	opId, err := decodeId(d)
	if err != nil {
		return store.Delete{}, err
	}
	client, err := d.U32()
	if err != nil {
		return store.Delete{}, err
	}
	start, err := d.U32()
	if err != nil {
		return store.Delete{}, err
	}
	size, err := d.U32()
	if err != nil {
		return store.Delete{}, err
	}
	if size == 0 {
		return store.Delete{}, fmt.Errorf("%w: empty delete range", ErrDecode)
	}
	return store.Delete{
		ID:    opId,
		Range: id.NewRange(client, start, start+size-1),
	}, nil
}

func encodeContent(e *Encoder, c item.Content) error {
	switch c.Kind {
	case item.ContentString:
		e.U8(contentTagString)
		e.String(c.Str)
	case item.ContentBinary:
		e.U8(contentTagBinary)
		e.Bytes(c.Bytes)
	case item.ContentValue:
		raw, err := json.Marshal(c.Value)
		if err != nil {
			return fmt.Errorf("codec: encode content: %w", err)
		}
		e.U8(contentTagValue)
		e.Bytes(raw)
	case item.ContentDoc:
		raw, err := json.Marshal(c.Doc.Opts)
		if err != nil {
			return fmt.Errorf("codec: encode content: %w", err)
		}
		e.U8(contentTagDoc)
		e.String(c.Doc.GUID)
		e.Bytes(raw)
	default:
		return fmt.Errorf("codec: encode content: unknown kind %d", c.Kind)
	}
	return nil
}

func decodeContent(d *Decoder) (item.Content, error) {
	tag, err := d.U8()
	if err != nil {
		return item.Content{}, err
	}
	switch tag {
	case contentTagString:
		s, err := d.String()
		if err != nil {
			return item.Content{}, err
		}
		return item.StringContent(s), nil
	case contentTagBinary:
		b, err := d.Bytes()
		if err != nil {
			return item.Content{}, err
		}
		return item.BinaryContent(b), nil
	case contentTagValue:
		raw, err := d.Bytes()
		if err != nil {
			return item.Content{}, err
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return item.Content{}, fmt.Errorf("%w: invalid content value: %v", ErrDecode, err)
		}
		return item.ValueContent(v), nil
	case contentTagDoc:
		guid, err := d.String()
		if err != nil {
			return item.Content{}, err
		}
		raw, err := d.Bytes()
		if err != nil {
			return item.Content{}, err
		}
		var opts map[string]any
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &opts); err != nil {
				return item.Content{}, fmt.Errorf("%w: invalid doc opts: %v", ErrDecode, err)
			}
		}
		return item.DocRefContent(guid, opts), nil
	default:
		return item.Content{}, fmt.Errorf("%w: unknown content tag %d", ErrDecode, tag)
	}
}
