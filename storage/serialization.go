// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/ragline/core"
)

// float32Size is the encoded size of one vector component.
const float32Size = 4

// VectorRecordMUS serializes a VectorRecord as id, vector, metadata. The
// vector precedes the metadata so scans can score a record without decoding
// its payload.
var VectorRecordMUS = vectorRecordMUS{}

// MetadataMUS serializes record Metadata.
var MetadataMUS = metadataMUS{}

var vectorMUS = ord.NewSliceSer[float32](raw.Float32)

// MarshalRecord serializes a VectorRecord to bytes.
func MarshalRecord(record *core.VectorRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: record is nil", ErrSerializationFailed)
	}
	buf := make([]byte, VectorRecordMUS.Size(*record))
	VectorRecordMUS.Marshal(*record, buf)
	return buf, nil
}

// UnmarshalRecord deserializes a VectorRecord from bytes.
func UnmarshalRecord(data []byte) (*core.VectorRecord, error) {
	record, _, err := VectorRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, decodeError(err)
	}
	return &record, nil
}

// UnmarshalVector decodes only the ID and vector of a serialized record.
func UnmarshalVector(data []byte) (string, []float32, error) {
	id, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return "", nil, decodeError(err)
	}
	vector, _, err := unmarshalVector(data[n:])
	if err != nil {
		return "", nil, decodeError(err)
	}
	return id, vector, nil
}

func decodeError(err error) error {
	if errors.Is(err, mus.ErrTooSmallByteSlice) || errors.Is(err, ErrTruncatedData) {
		return fmt.Errorf("%w: %w", ErrTruncatedData, err)
	}
	return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
}

// unmarshalVector checks the declared length against the remaining bytes
// before allocating, so corrupt input cannot request a huge slice.
func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > (len(bs)-n)/float32Size {
		return nil, n, ErrTruncatedData
	}
	return vectorMUS.Unmarshal(bs)
}

type vectorRecordMUS struct{}

func (vectorRecordMUS) Marshal(r core.VectorRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.ID, bs)
	n += vectorMUS.Marshal(r.Vector, bs[n:])
	return n + MetadataMUS.Marshal(r.Metadata, bs[n:])
}

func (vectorRecordMUS) Unmarshal(bs []byte) (r core.VectorRecord, n int, err error) {
	r.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	r.Vector, n1, err = unmarshalVector(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Metadata, n1, err = MetadataMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (vectorRecordMUS) Size(r core.VectorRecord) (size int) {
	return ord.String.Size(r.ID) + vectorMUS.Size(r.Vector) + MetadataMUS.Size(r.Metadata)
}

func (vectorRecordMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = vectorMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = MetadataMUS.Skip(bs[n:])
	n += n1
	return
}

type metadataMUS struct{}

func (metadataMUS) strings(m *core.Metadata) []*string {
	return []*string{&m.Text, &m.Category, &m.Topic, &m.URL, &m.Title, &m.Source}
}

func (s metadataMUS) Marshal(m core.Metadata, bs []byte) (n int) {
	for _, f := range s.strings(&m) {
		n += ord.String.Marshal(*f, bs[n:])
	}
	n += varint.Int.Marshal(m.ChunkIndex, bs[n:])
	return n + varint.Int.Marshal(m.ChunkCount, bs[n:])
}

func (s metadataMUS) Unmarshal(bs []byte) (m core.Metadata, n int, err error) {
	var n1 int
	for _, f := range s.strings(&m) {
		*f, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	m.ChunkIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	m.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (s metadataMUS) Size(m core.Metadata) (size int) {
	for _, f := range s.strings(&m) {
		size += ord.String.Size(*f)
	}
	return size + varint.Int.Size(m.ChunkIndex) + varint.Int.Size(m.ChunkCount)
}

func (s metadataMUS) Skip(bs []byte) (n int, err error) {
	var m core.Metadata
	var n1 int
	for range s.strings(&m) {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	for range 2 {
		n1, err = varint.Int.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

// MarshalIndexInfo serializes index details.
func MarshalIndexInfo(info *IndexInfo) ([]byte, error) {
	data, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalIndexInfo deserializes index details.
func UnmarshalIndexInfo(data []byte) (*IndexInfo, error) {
	var info IndexInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &info, nil
}
