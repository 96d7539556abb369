package disperser

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jacktea/eigenkv/pkg/blob"
)

// Field numbers follow disperser/disperser.proto of the EigenDA v1 API.

type disperseBlobRequest struct {
	Data                []byte
	CustomQuorumNumbers []uint32
	AccountID           string
}

func (m *disperseBlobRequest) appendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.Data)
	if len(m.CustomQuorumNumbers) > 0 {
		var packed []byte
		for _, q := range m.CustomQuorumNumbers {
			packed = protowire.AppendVarint(packed, uint64(q))
		}
		b = appendBytes(b, 2, packed)
	}
	return appendBytes(b, 3, []byte(m.AccountID))
}

func (m *disperseBlobRequest) consumeWire(b []byte) error {
	*m = disperseBlobRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, &m.Data)
		case 2:
			return m.consumeQuorums(typ, b)
		case 3:
			var account []byte
			n, err := consumeBytes(typ, b, &account)
			m.AccountID = string(account)
			return n, err
		}
		return 0, nil
	})
}

// consumeQuorums accepts both packed and unpacked repeated encodings.
func (m *disperseBlobRequest) consumeQuorums(typ protowire.Type, b []byte) (int, error) {
	switch typ {
	case protowire.VarintType:
		var q uint32
		n, err := consumeUint32(typ, b, &q)
		if err == nil {
			m.CustomQuorumNumbers = append(m.CustomQuorumNumbers, q)
		}
		return n, err
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		for len(packed) > 0 {
			v, vn := protowire.ConsumeVarint(packed)
			if vn < 0 {
				return 0, protowire.ParseError(vn)
			}
			m.CustomQuorumNumbers = append(m.CustomQuorumNumbers, uint32(v))
			packed = packed[vn:]
		}
		return n, nil
	}
	return 0, nil
}

type disperseBlobReply struct {
	Result    blob.Status
	RequestID []byte
}

func (m *disperseBlobReply) appendWire(b []byte) []byte {
	b = appendUint32(b, 1, uint32(m.Result))
	return appendBytes(b, 2, m.RequestID)
}

func (m *disperseBlobReply) consumeWire(b []byte) error {
	*m = disperseBlobReply{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeStatus(typ, b, &m.Result)
		case 2:
			return consumeBytes(typ, b, &m.RequestID)
		}
		return 0, nil
	})
}

type blobStatusRequest struct {
	RequestID []byte
}

func (m *blobStatusRequest) appendWire(b []byte) []byte {
	return appendBytes(b, 1, m.RequestID)
}

func (m *blobStatusRequest) consumeWire(b []byte) error {
	*m = blobStatusRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeBytes(typ, b, &m.RequestID)
		}
		return 0, nil
	})
}

type blobStatusReply struct {
	Status blob.Status
	Info   *blobInfo
}

func (m *blobStatusReply) appendWire(b []byte) []byte {
	b = appendUint32(b, 1, uint32(m.Status))
	if m.Info != nil {
		b = appendMessage(b, 2, m.Info)
	}
	return b
}

func (m *blobStatusReply) consumeWire(b []byte) error {
	*m = blobStatusReply{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeStatus(typ, b, &m.Status)
		case 2:
			m.Info = &blobInfo{}
			return consumeMessage(typ, b, m.Info)
		}
		return 0, nil
	})
}

// blobInfo skips the blob header (field 1); the client never reads it.
type blobInfo struct {
	Proof *verificationProof
}

func (m *blobInfo) appendWire(b []byte) []byte {
	if m.Proof != nil {
		b = appendMessage(b, 2, m.Proof)
	}
	return b
}

func (m *blobInfo) consumeWire(b []byte) error {
	*m = blobInfo{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 2 {
			m.Proof = &verificationProof{}
			return consumeMessage(typ, b, m.Proof)
		}
		return 0, nil
	})
}

type verificationProof struct {
	BatchID        uint32
	BlobIndex      uint32
	Metadata       *batchMetadata
	InclusionProof []byte
	QuorumIndexes  []byte
}

func (m *verificationProof) appendWire(b []byte) []byte {
	b = appendUint32(b, 1, m.BatchID)
	b = appendUint32(b, 2, m.BlobIndex)
	if m.Metadata != nil {
		b = appendMessage(b, 3, m.Metadata)
	}
	b = appendBytes(b, 4, m.InclusionProof)
	return appendBytes(b, 5, m.QuorumIndexes)
}

func (m *verificationProof) consumeWire(b []byte) error {
	*m = verificationProof{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeUint32(typ, b, &m.BatchID)
		case 2:
			return consumeUint32(typ, b, &m.BlobIndex)
		case 3:
			m.Metadata = &batchMetadata{}
			return consumeMessage(typ, b, m.Metadata)
		case 4:
			return consumeBytes(typ, b, &m.InclusionProof)
		case 5:
			return consumeBytes(typ, b, &m.QuorumIndexes)
		}
		return 0, nil
	})
}

// batchMetadata skips the batch header (field 1); its hash is field 5.
type batchMetadata struct {
	SignatoryRecordHash     []byte
	Fee                     []byte
	ConfirmationBlockNumber uint32
	BatchHeaderHash         []byte
}

func (m *batchMetadata) appendWire(b []byte) []byte {
	b = appendBytes(b, 2, m.SignatoryRecordHash)
	b = appendBytes(b, 3, m.Fee)
	b = appendUint32(b, 4, m.ConfirmationBlockNumber)
	return appendBytes(b, 5, m.BatchHeaderHash)
}

func (m *batchMetadata) consumeWire(b []byte) error {
	*m = batchMetadata{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 2:
			return consumeBytes(typ, b, &m.SignatoryRecordHash)
		case 3:
			return consumeBytes(typ, b, &m.Fee)
		case 4:
			return consumeUint32(typ, b, &m.ConfirmationBlockNumber)
		case 5:
			return consumeBytes(typ, b, &m.BatchHeaderHash)
		}
		return 0, nil
	})
}

type retrieveBlobRequest struct {
	BatchHeaderHash []byte
	BlobIndex       uint32
}

func (m *retrieveBlobRequest) appendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.BatchHeaderHash)
	return appendUint32(b, 2, m.BlobIndex)
}

func (m *retrieveBlobRequest) consumeWire(b []byte) error {
	*m = retrieveBlobRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, &m.BatchHeaderHash)
		case 2:
			return consumeUint32(typ, b, &m.BlobIndex)
		}
		return 0, nil
	})
}

type retrieveBlobReply struct {
	Data []byte
}

func (m *retrieveBlobReply) appendWire(b []byte) []byte {
	return appendBytes(b, 1, m.Data)
}

func (m *retrieveBlobReply) consumeWire(b []byte) error {
	*m = retrieveBlobReply{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeBytes(typ, b, &m.Data)
		}
		return 0, nil
	})
}

func consumeStatus(typ protowire.Type, b []byte, dst *blob.Status) (int, error) {
	var v uint32
	n, err := consumeUint32(typ, b, &v)
	if n > 0 && err == nil {
		*dst = blob.Status(v)
	}
	return n, err
}
