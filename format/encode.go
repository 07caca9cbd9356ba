package format

import (
	"github.com/Vitruves/carquet-go/internal/thrift"
)

func encodeStatistics(e *thrift.Encoder, s *Statistics) {
	e.WriteStructBegin()
	if s.Max != nil {
		e.WriteFieldHeader(1, thrift.Binary)
		e.WriteBytes(s.Max)
	}
	if s.Min != nil {
		e.WriteFieldHeader(2, thrift.Binary)
		e.WriteBytes(s.Min)
	}
	if s.NullCount != 0 {
		e.WriteFieldHeader(3, thrift.I64)
		e.WriteI64(s.NullCount)
	}
	if s.DistinctCount != 0 {
		e.WriteFieldHeader(4, thrift.I64)
		e.WriteI64(s.DistinctCount)
	}
	if s.MaxValue != nil {
		e.WriteFieldHeader(5, thrift.Binary)
		e.WriteBytes(s.MaxValue)
	}
	if s.MinValue != nil {
		e.WriteFieldHeader(6, thrift.Binary)
		e.WriteBytes(s.MinValue)
	}
	e.WriteStructEnd()
}

func statisticsEmpty(s *Statistics) bool {
	return s.Max == nil && s.Min == nil && s.NullCount == 0 &&
		s.DistinctCount == 0 && s.MaxValue == nil && s.MinValue == nil
}

func encodeKeyValue(e *thrift.Encoder, kv *KeyValue) {
	e.WriteStructBegin()
	e.WriteFieldHeader(1, thrift.Binary)
	e.WriteString(kv.Key)
	if kv.Value != "" {
		e.WriteFieldHeader(2, thrift.Binary)
		e.WriteString(kv.Value)
	}
	e.WriteStructEnd()
}

func encodeSortingColumn(e *thrift.Encoder, sc *SortingColumn) {
	e.WriteStructBegin()
	e.WriteFieldHeader(1, thrift.I32)
	e.WriteI32(sc.ColumnIdx)
	e.WriteBoolField(2, sc.Descending)
	e.WriteBoolField(3, sc.NullsFirst)
	e.WriteStructEnd()
}

func encodePageEncodingStats(e *thrift.Encoder, pes *PageEncodingStats) {
	e.WriteStructBegin()
	e.WriteFieldHeader(1, thrift.I32)
	e.WriteI32(int32(pes.PageType))
	e.WriteFieldHeader(2, thrift.I32)
	e.WriteI32(int32(pes.Encoding))
	e.WriteFieldHeader(3, thrift.I32)
	e.WriteI32(pes.Count)
	e.WriteStructEnd()
}

func encodeEmptyStruct(e *thrift.Encoder) {
	e.WriteStructBegin()
	e.WriteStructEnd()
}

func encodeTimeUnit(e *thrift.Encoder, tu *TimeUnit) {
	e.WriteStructBegin()
	switch {
	case tu.Millis != nil:
		e.WriteFieldHeader(1, thrift.Struct)
		encodeEmptyStruct(e)
	case tu.Micros != nil:
		e.WriteFieldHeader(2, thrift.Struct)
		encodeEmptyStruct(e)
	case tu.Nanos != nil:
		e.WriteFieldHeader(3, thrift.Struct)
		encodeEmptyStruct(e)
	}
	e.WriteStructEnd()
}

func encodeLogicalType(e *thrift.Encoder, lt *LogicalType) {
	e.WriteStructBegin()
	switch {
	case lt.UTF8 != nil:
		e.WriteFieldHeader(1, thrift.Struct)
		encodeEmptyStruct(e)
	case lt.Map != nil:
		e.WriteFieldHeader(2, thrift.Struct)
		encodeEmptyStruct(e)
	case lt.List != nil:
		e.WriteFieldHeader(3, thrift.Struct)
		encodeEmptyStruct(e)
	case lt.Enum != nil:
		e.WriteFieldHeader(4, thrift.Struct)
		encodeEmptyStruct(e)
	case lt.Decimal != nil:
		e.WriteFieldHeader(5, thrift.Struct)
		e.WriteStructBegin()
		e.WriteFieldHeader(1, thrift.I32)
		e.WriteI32(lt.Decimal.Scale)
		e.WriteFieldHeader(2, thrift.I32)
		e.WriteI32(lt.Decimal.Precision)
		e.WriteStructEnd()
	case lt.Date != nil:
		e.WriteFieldHeader(6, thrift.Struct)
		encodeEmptyStruct(e)
	case lt.Time != nil:
		e.WriteFieldHeader(7, thrift.Struct)
		e.WriteStructBegin()
		e.WriteBoolField(1, lt.Time.IsAdjustedToUTC)
		e.WriteFieldHeader(2, thrift.Struct)
		encodeTimeUnit(e, &lt.Time.Unit)
		e.WriteStructEnd()
	case lt.Timestamp != nil:
		e.WriteFieldHeader(8, thrift.Struct)
		e.WriteStructBegin()
		e.WriteBoolField(1, lt.Timestamp.IsAdjustedToUTC)
		e.WriteFieldHeader(2, thrift.Struct)
		encodeTimeUnit(e, &lt.Timestamp.Unit)
		e.WriteStructEnd()
	case lt.Integer != nil:
		e.WriteFieldHeader(10, thrift.Struct)
		e.WriteStructBegin()
		e.WriteFieldHeader(1, thrift.I8)
		e.WriteI8(lt.Integer.BitWidth)
		e.WriteBoolField(2, lt.Integer.IsSigned)
		e.WriteStructEnd()
	case lt.Unknown != nil:
		e.WriteFieldHeader(11, thrift.Struct)
		encodeEmptyStruct(e)
	case lt.Json != nil:
		e.WriteFieldHeader(12, thrift.Struct)
		encodeEmptyStruct(e)
	case lt.Bson != nil:
		e.WriteFieldHeader(13, thrift.Struct)
		encodeEmptyStruct(e)
	case lt.UUID != nil:
		e.WriteFieldHeader(14, thrift.Struct)
		encodeEmptyStruct(e)
	case lt.Float16 != nil:
		e.WriteFieldHeader(15, thrift.Struct)
		encodeEmptyStruct(e)
	}
	e.WriteStructEnd()
}

func encodeSchemaElement(e *thrift.Encoder, se *SchemaElement) {
	e.WriteStructBegin()
	if se.Type != nil {
		e.WriteFieldHeader(1, thrift.I32)
		e.WriteI32(int32(*se.Type))
	}
	if se.TypeLength != nil {
		e.WriteFieldHeader(2, thrift.I32)
		e.WriteI32(*se.TypeLength)
	}
	if se.RepetitionType != nil {
		e.WriteFieldHeader(3, thrift.I32)
		e.WriteI32(int32(*se.RepetitionType))
	}
	e.WriteFieldHeader(4, thrift.Binary)
	e.WriteString(se.Name)
	if se.NumChildren != nil {
		e.WriteFieldHeader(5, thrift.I32)
		e.WriteI32(*se.NumChildren)
	}
	if se.ConvertedType != nil {
		e.WriteFieldHeader(6, thrift.I32)
		e.WriteI32(int32(*se.ConvertedType))
	}
	if se.Scale != nil {
		e.WriteFieldHeader(7, thrift.I32)
		e.WriteI32(*se.Scale)
	}
	if se.Precision != nil {
		e.WriteFieldHeader(8, thrift.I32)
		e.WriteI32(*se.Precision)
	}
	if se.FieldID != 0 {
		e.WriteFieldHeader(9, thrift.I32)
		e.WriteI32(se.FieldID)
	}
	if se.LogicalType != nil {
		e.WriteFieldHeader(10, thrift.Struct)
		encodeLogicalType(e, se.LogicalType)
	}
	e.WriteStructEnd()
}

func encodeColumnMetaData(e *thrift.Encoder, cmd *ColumnMetaData) {
	e.WriteStructBegin()
	e.WriteFieldHeader(1, thrift.I32)
	e.WriteI32(int32(cmd.Type))
	e.WriteFieldHeader(2, thrift.List)
	e.WriteListHeader(len(cmd.Encoding), thrift.I32)
	for _, enc := range cmd.Encoding {
		e.WriteI32(int32(enc))
	}
	e.WriteFieldHeader(3, thrift.List)
	e.WriteListHeader(len(cmd.PathInSchema), thrift.Binary)
	for _, p := range cmd.PathInSchema {
		e.WriteString(p)
	}
	e.WriteFieldHeader(4, thrift.I32)
	e.WriteI32(int32(cmd.Codec))
	e.WriteFieldHeader(5, thrift.I64)
	e.WriteI64(cmd.NumValues)
	e.WriteFieldHeader(6, thrift.I64)
	e.WriteI64(cmd.TotalUncompressedSize)
	e.WriteFieldHeader(7, thrift.I64)
	e.WriteI64(cmd.TotalCompressedSize)
	if len(cmd.KeyValueMetadata) > 0 {
		e.WriteFieldHeader(8, thrift.List)
		e.WriteListHeader(len(cmd.KeyValueMetadata), thrift.Struct)
		for i := range cmd.KeyValueMetadata {
			encodeKeyValue(e, &cmd.KeyValueMetadata[i])
		}
	}
	e.WriteFieldHeader(9, thrift.I64)
	e.WriteI64(cmd.DataPageOffset)
	if cmd.IndexPageOffset != 0 {
		e.WriteFieldHeader(10, thrift.I64)
		e.WriteI64(cmd.IndexPageOffset)
	}
	if cmd.DictionaryPageOffset != 0 {
		e.WriteFieldHeader(11, thrift.I64)
		e.WriteI64(cmd.DictionaryPageOffset)
	}
	if !statisticsEmpty(&cmd.Statistics) {
		e.WriteFieldHeader(12, thrift.Struct)
		encodeStatistics(e, &cmd.Statistics)
	}
	if len(cmd.EncodingStats) > 0 {
		e.WriteFieldHeader(13, thrift.List)
		e.WriteListHeader(len(cmd.EncodingStats), thrift.Struct)
		for i := range cmd.EncodingStats {
			encodePageEncodingStats(e, &cmd.EncodingStats[i])
		}
	}
	if cmd.BloomFilterOffset != 0 {
		e.WriteFieldHeader(14, thrift.I64)
		e.WriteI64(cmd.BloomFilterOffset)
	}
	if cmd.BloomFilterLength != 0 {
		e.WriteFieldHeader(15, thrift.I32)
		e.WriteI32(cmd.BloomFilterLength)
	}
	e.WriteStructEnd()
}

func encodeColumnChunk(e *thrift.Encoder, cc *ColumnChunk) {
	e.WriteStructBegin()
	if cc.FilePath != "" {
		e.WriteFieldHeader(1, thrift.Binary)
		e.WriteString(cc.FilePath)
	}
	e.WriteFieldHeader(2, thrift.I64)
	e.WriteI64(cc.FileOffset)
	e.WriteFieldHeader(3, thrift.Struct)
	encodeColumnMetaData(e, &cc.MetaData)
	if cc.OffsetIndexOffset != 0 {
		e.WriteFieldHeader(4, thrift.I64)
		e.WriteI64(cc.OffsetIndexOffset)
	}
	if cc.OffsetIndexLength != 0 {
		e.WriteFieldHeader(5, thrift.I32)
		e.WriteI32(cc.OffsetIndexLength)
	}
	if cc.ColumnIndexOffset != 0 {
		e.WriteFieldHeader(6, thrift.I64)
		e.WriteI64(cc.ColumnIndexOffset)
	}
	if cc.ColumnIndexLength != 0 {
		e.WriteFieldHeader(7, thrift.I32)
		e.WriteI32(cc.ColumnIndexLength)
	}
	e.WriteStructEnd()
}

func encodeRowGroup(e *thrift.Encoder, rg *RowGroup) {
	e.WriteStructBegin()
	e.WriteFieldHeader(1, thrift.List)
	e.WriteListHeader(len(rg.Columns), thrift.Struct)
	for i := range rg.Columns {
		encodeColumnChunk(e, &rg.Columns[i])
	}
	e.WriteFieldHeader(2, thrift.I64)
	e.WriteI64(rg.TotalByteSize)
	e.WriteFieldHeader(3, thrift.I64)
	e.WriteI64(rg.NumRows)
	if len(rg.SortingColumns) > 0 {
		e.WriteFieldHeader(4, thrift.List)
		e.WriteListHeader(len(rg.SortingColumns), thrift.Struct)
		for i := range rg.SortingColumns {
			encodeSortingColumn(e, &rg.SortingColumns[i])
		}
	}
	if rg.FileOffset != 0 {
		e.WriteFieldHeader(5, thrift.I64)
		e.WriteI64(rg.FileOffset)
	}
	if rg.TotalCompressedSize != 0 {
		e.WriteFieldHeader(6, thrift.I64)
		e.WriteI64(rg.TotalCompressedSize)
	}
	if rg.Ordinal != 0 {
		e.WriteFieldHeader(7, thrift.I16)
		e.WriteI16(rg.Ordinal)
	}
	e.WriteStructEnd()
}

// EncodeFileMetaData appends the Thrift encoding of fmd to buf.
func EncodeFileMetaData(buf []byte, fmd *FileMetaData) ([]byte, error) {
	e := thrift.NewEncoder(buf)
	e.WriteStructBegin()
	e.WriteFieldHeader(1, thrift.I32)
	e.WriteI32(fmd.Version)
	e.WriteFieldHeader(2, thrift.List)
	e.WriteListHeader(len(fmd.Schema), thrift.Struct)
	for i := range fmd.Schema {
		encodeSchemaElement(e, &fmd.Schema[i])
	}
	e.WriteFieldHeader(3, thrift.I64)
	e.WriteI64(fmd.NumRows)
	e.WriteFieldHeader(4, thrift.List)
	e.WriteListHeader(len(fmd.RowGroups), thrift.Struct)
	for i := range fmd.RowGroups {
		encodeRowGroup(e, &fmd.RowGroups[i])
	}
	if len(fmd.KeyValueMetadata) > 0 {
		e.WriteFieldHeader(5, thrift.List)
		e.WriteListHeader(len(fmd.KeyValueMetadata), thrift.Struct)
		for i := range fmd.KeyValueMetadata {
			encodeKeyValue(e, &fmd.KeyValueMetadata[i])
		}
	}
	if fmd.CreatedBy != "" {
		e.WriteFieldHeader(6, thrift.Binary)
		e.WriteString(fmd.CreatedBy)
	}
	e.WriteStructEnd()
	return e.Bytes(), e.Err()
}

// EncodePageHeader appends the Thrift encoding of h to buf.
func EncodePageHeader(buf []byte, h *PageHeader) ([]byte, error) {
	e := thrift.NewEncoder(buf)
	e.WriteStructBegin()
	e.WriteFieldHeader(1, thrift.I32)
	e.WriteI32(int32(h.Type))
	e.WriteFieldHeader(2, thrift.I32)
	e.WriteI32(h.UncompressedPageSize)
	e.WriteFieldHeader(3, thrift.I32)
	e.WriteI32(h.CompressedPageSize)
	if h.HasCRC {
		e.WriteFieldHeader(4, thrift.I32)
		e.WriteI32(h.CRC)
	}
	if dp := h.DataPageHeader; dp != nil {
		e.WriteFieldHeader(5, thrift.Struct)
		e.WriteStructBegin()
		e.WriteFieldHeader(1, thrift.I32)
		e.WriteI32(dp.NumValues)
		e.WriteFieldHeader(2, thrift.I32)
		e.WriteI32(int32(dp.Encoding))
		e.WriteFieldHeader(3, thrift.I32)
		e.WriteI32(int32(dp.DefinitionLevelEncoding))
		e.WriteFieldHeader(4, thrift.I32)
		e.WriteI32(int32(dp.RepetitionLevelEncoding))
		if !statisticsEmpty(&dp.Statistics) {
			e.WriteFieldHeader(5, thrift.Struct)
			encodeStatistics(e, &dp.Statistics)
		}
		e.WriteStructEnd()
	}
	if dh := h.DictionaryPageHeader; dh != nil {
		e.WriteFieldHeader(7, thrift.Struct)
		e.WriteStructBegin()
		e.WriteFieldHeader(1, thrift.I32)
		e.WriteI32(dh.NumValues)
		e.WriteFieldHeader(2, thrift.I32)
		e.WriteI32(int32(dh.Encoding))
		e.WriteBoolField(3, dh.IsSorted)
		e.WriteStructEnd()
	}
	if v2 := h.DataPageHeaderV2; v2 != nil {
		e.WriteFieldHeader(8, thrift.Struct)
		e.WriteStructBegin()
		e.WriteFieldHeader(1, thrift.I32)
		e.WriteI32(v2.NumValues)
		e.WriteFieldHeader(2, thrift.I32)
		e.WriteI32(v2.NumNulls)
		e.WriteFieldHeader(3, thrift.I32)
		e.WriteI32(v2.NumRows)
		e.WriteFieldHeader(4, thrift.I32)
		e.WriteI32(int32(v2.Encoding))
		e.WriteFieldHeader(5, thrift.I32)
		e.WriteI32(v2.DefinitionLevelsByteLength)
		e.WriteFieldHeader(6, thrift.I32)
		e.WriteI32(v2.RepetitionLevelsByteLength)
		e.WriteBoolField(7, v2.IsCompressed)
		if !statisticsEmpty(&v2.Statistics) {
			e.WriteFieldHeader(8, thrift.Struct)
			encodeStatistics(e, &v2.Statistics)
		}
		e.WriteStructEnd()
	}
	e.WriteStructEnd()
	return e.Bytes(), e.Err()
}
