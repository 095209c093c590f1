package remote

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/odvcencio/hull/pkg/object"
)

// batchTransportMagic identifies the "x-got-pack" wire framing: a flat,
// length-prefixed sequence of object records. Unlike a real packfile, there
// is no delta compression here — whole-object bytes are written as-is and
// the wire-level savings come entirely from wrapping the stream in zstd
// (see compressZstd/decompressZstd), which is what the "pack" accept header
// actually buys a client over the JSON fallback.
var batchTransportMagic = [4]byte{'H', 'B', 'T', '1'}

// EncodePackTransport encodes ObjectRecords into the batch wire format.
func EncodePackTransport(w io.Writer, records []ObjectRecord) error {
	if _, err := w.Write(batchTransportMagic[:]); err != nil {
		return fmt.Errorf("write batch header: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(records))); err != nil {
		return fmt.Errorf("write batch count: %w", err)
	}

	for _, rec := range records {
		if err := writeBatchEntry(w, rec); err != nil {
			return fmt.Errorf("write batch entry for %s: %w", rec.Hash, err)
		}
	}
	return nil
}

func writeBatchEntry(w io.Writer, rec ObjectRecord) error {
	typeBytes := []byte(rec.Type)
	hashBytes := []byte(rec.Hash)

	for _, field := range [][]byte{typeBytes, hashBytes} {
		if err := binary.Write(w, binary.BigEndian, uint16(len(field))); err != nil {
			return err
		}
		if _, err := w.Write(field); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.BigEndian, uint64(len(rec.Data))); err != nil {
		return err
	}
	_, err := w.Write(rec.Data)
	return err
}

// DecodePackTransport decodes the batch wire format into ObjectRecords.
func DecodePackTransport(data []byte) ([]ObjectRecord, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r := bytes.NewReader(data)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read batch header: %w", err)
	}
	if magic != batchTransportMagic {
		return nil, fmt.Errorf("unrecognized batch transport magic %q", magic)
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("read batch count: %w", err)
	}

	records := make([]ObjectRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		rec, err := readBatchEntry(r)
		if err != nil {
			return nil, fmt.Errorf("read batch entry %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func readBatchEntry(r *bytes.Reader) (ObjectRecord, error) {
	typ, err := readBatchField(r)
	if err != nil {
		return ObjectRecord{}, err
	}
	hash, err := readBatchField(r)
	if err != nil {
		return ObjectRecord{}, err
	}

	var dataLen uint64
	if err := binary.Read(r, binary.BigEndian, &dataLen); err != nil {
		return ObjectRecord{}, err
	}
	buf := make([]byte, dataLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return ObjectRecord{}, err
	}

	objType := object.ObjectType(typ)
	if _, err := parseObjectType(string(objType)); err != nil {
		return ObjectRecord{}, err
	}

	return ObjectRecord{
		Hash: object.Hash(hash),
		Type: objType,
		Data: buf,
	}, nil
}

func readBatchField(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// EncodePackTransportToBytes is a convenience wrapper.
func EncodePackTransportToBytes(records []ObjectRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePackTransport(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
