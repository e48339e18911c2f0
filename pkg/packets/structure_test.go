package packets_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
)

var sampleBuffer = []byte{
	0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
	0x00, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
}

func TestStructureDefinedLength(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.DefineItem("a", 0, 8, accessor.DataTypeUint)
	require.NoError(t, err)
	_, err = s.DefineItem("b", 8, 16, accessor.DataTypeUint)
	require.NoError(t, err)

	assert.Equal(t, 3, s.DefinedLength())
	assert.Equal(t, 24, s.DefinedLengthBits())
	assert.True(t, s.FixedSize())
	assert.Equal(t, 3, s.Length())

	item, err := s.Item("A")
	require.NoError(t, err)
	assert.Equal(t, "A", item.Name)
	assert.Equal(t, "a", item.Key)
}

func TestStructureNegativeOffsetLength(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.DefineItem("HEADER", 0, 16, accessor.DataTypeUint)
	require.NoError(t, err)
	_, err = s.DefineItem("CRC", -16, 16, accessor.DataTypeUint)
	require.NoError(t, err)

	assert.Equal(t, 4, s.DefinedLength())
}

func TestStructureAppendItem(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	a, err := s.AppendItem("A", 8, accessor.DataTypeUint)
	require.NoError(t, err)
	b, err := s.AppendItem("B", 4, accessor.DataTypeUint)
	require.NoError(t, err)
	c, err := s.AppendItem("C", 4, accessor.DataTypeUint)
	require.NoError(t, err)
	arr, err := s.AppendArrayItem("ARR", 8, accessor.DataTypeUint, 24)
	require.NoError(t, err)

	assert.Equal(t, 0, a.BitOffset)
	assert.Equal(t, 8, b.BitOffset)
	assert.Equal(t, 12, c.BitOffset)
	assert.Equal(t, 16, arr.BitOffset)
	assert.Equal(t, 5, s.DefinedLength())
}

func TestStructureAppendAfterVariableItem(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.DefineItem("DATA", 0, 0, accessor.DataTypeBlock)
	require.NoError(t, err)
	assert.False(t, s.FixedSize())

	_, err = s.AppendItem("X", 8, accessor.DataTypeUint)
	require.Error(t, err)
	assert.ErrorIs(t, err, packets.ErrConfiguration)
	assert.Contains(t, err.Error(), "Can't append an item after a variably sized item")

	derived, err := s.AppendItem("D", 0, accessor.DataTypeDerived)
	require.NoError(t, err)
	assert.Equal(t, 0, derived.BitOffset)
}

func TestStructureDeleteItemIsSoft(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.DefineItem("A", 0, 8, accessor.DataTypeUint)
	require.NoError(t, err)
	_, err = s.DefineItem("B", 8, 8, accessor.DataTypeUint)
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem("b"))
	assert.Equal(t, 2, s.DefinedLength())
	assert.Equal(t, []string{"A"}, s.ItemNames())

	_, err = s.Item("B")
	require.Error(t, err)
	assert.ErrorIs(t, err, packets.ErrUnknownItem)
	assert.True(t, packets.IsUnknownItem(err))

	var ie *packets.ItemError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "B", ie.Item)

	assert.ErrorIs(t, s.DeleteItem("B"), packets.ErrUnknownItem)
}

func TestStructureRedefineReplaces(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.DefineItem("A", 0, 8, accessor.DataTypeUint)
	require.NoError(t, err)
	_, err = s.DefineItem("a", 8, 8, accessor.DataTypeUint)
	require.NoError(t, err)

	items := s.SortedItems()
	require.Len(t, items, 1)
	assert.Equal(t, 8, items[0].BitOffset)
}

func TestStructureSortOrder(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	for _, def := range []struct {
		name      string
		off, size int
	}{
		{"C", 16, 8},
		{"A", 0, 8},
		{"N", -8, 8},
		{"B", 8, 8},
		{"A2", 0, 4},
	} {
		_, err := s.DefineItem(def.name, def.off, def.size, accessor.DataTypeUint)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"A2", "A", "B", "C", "N"}, s.ItemNames())
}

func TestStructureRenameItem(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.DefineItem("A", 0, 8, accessor.DataTypeUint)
	require.NoError(t, err)

	item, err := s.RenameItem("A", "z")
	require.NoError(t, err)
	assert.Equal(t, "Z", item.Name)
	assert.False(t, s.HasItem("A"))
	assert.True(t, s.HasItem("Z"))
}

func TestStructureSetBuffer(t *testing.T) {
	t.Run("fixed size", func(t *testing.T) {
		s := packets.NewStructure(accessor.BigEndian)
		_, err := s.DefineItem("A", 0, 16, accessor.DataTypeUint)
		require.NoError(t, err)

		err = s.SetBuffer([]byte{1})
		assert.ErrorIs(t, err, packets.ErrBounds)
		assert.EqualError(t, err, "bounds error: Buffer length less than defined length")
		assert.Equal(t, []byte{1, 0}, s.Buffer())

		err = s.SetBuffer([]byte{1, 2, 3})
		assert.ErrorIs(t, err, packets.ErrBounds)
		assert.Equal(t, 3, s.Length())

		assert.NoError(t, s.SetBuffer([]byte{1, 2}))
	})

	t.Run("short buffer allowed", func(t *testing.T) {
		s := packets.NewStructure(accessor.BigEndian)
		s.ShortBufferAllowed = true
		_, err := s.DefineItem("A", 0, 16, accessor.DataTypeUint)
		require.NoError(t, err)
		assert.NoError(t, s.SetBuffer([]byte{1}))
		assert.Equal(t, 2, s.Length())
	})

	t.Run("variable size accepts longer buffers", func(t *testing.T) {
		s := packets.NewStructure(accessor.BigEndian)
		_, err := s.DefineItem("A", 0, 8, accessor.DataTypeUint)
		require.NoError(t, err)
		_, err = s.DefineItem("DATA", 8, 0, accessor.DataTypeBlock)
		require.NoError(t, err)
		assert.NoError(t, s.SetBuffer([]byte{1, 2, 3, 4, 5}))
	})

	t.Run("buffer is copied", func(t *testing.T) {
		s := packets.NewStructure(accessor.BigEndian)
		_, err := s.DefineItem("A", 0, 8, accessor.DataTypeUint)
		require.NoError(t, err)
		b := []byte{7}
		require.NoError(t, s.SetBuffer(b))
		b[0] = 9
		v, err := s.Read("A")
		require.NoError(t, err)
		assert.Equal(t, uint64(7), v)
	})
}

func TestStructureReadWrite(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.DefineItem("BIT8", 8, 1, accessor.DataTypeUint)
	require.NoError(t, err)
	_, err = s.DefineItem("BIT9", 9, 1, accessor.DataTypeUint)
	require.NoError(t, err)
	_, err = s.DefineItem("FLT", 0, 32, accessor.DataTypeFloat)
	require.NoError(t, err)
	_, err = s.DefineArrayItem("WORDS", 64, 16, accessor.DataTypeUint, 64)
	require.NoError(t, err)
	require.NoError(t, s.SetBuffer(sampleBuffer))

	v, err := s.Read("BIT8")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	v, err = s.Read("BIT9")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)

	v, err = s.Read("FLT")
	require.NoError(t, err)
	assert.InDelta(t, -1.189360e-38, v, 1e-43)

	v, err = s.Read("WORDS")
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x0009, 0x0A0B, 0x0C0D, 0x0E0F}, v)

	require.NoError(t, s.Write("WORDS", []int{1, 2, 3, 4}))
	assert.Equal(t, []byte{0, 1, 0, 2, 0, 3, 0, 4}, s.Buffer()[8:])

	err = s.Write("WORDS", []int{1, 2})
	assert.ErrorIs(t, err, packets.ErrRange)

	_, err = s.Read("MISSING")
	assert.ErrorIs(t, err, packets.ErrUnknownItem)
}

func TestStructureNegativeOffsetRead(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.DefineItem("BODY", 0, -16, accessor.DataTypeBlock)
	require.NoError(t, err)
	_, err = s.DefineItem("TAIL", -16, 16, accessor.DataTypeString)
	require.NoError(t, err)
	assert.Equal(t, 2, s.DefinedLength())
	require.NoError(t, s.SetBuffer(sampleBuffer))

	v, err := s.Read("TAIL")
	require.NoError(t, err)
	assert.Equal(t, "\x0E\x0F", v)

	v, err = s.Read("BODY")
	require.NoError(t, err)
	assert.Equal(t, sampleBuffer[:14], v)
}

func TestStructureVariableStringWrite(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.DefineItem("HDR", 0, 8, accessor.DataTypeUint)
	require.NoError(t, err)
	_, err = s.DefineItem("DATA", 8, -8, accessor.DataTypeString)
	require.NoError(t, err)
	_, err = s.DefineItem("CRC", -8, 8, accessor.DataTypeUint)
	require.NoError(t, err)
	assert.Equal(t, 2, s.DefinedLength())

	require.NoError(t, s.Write("CRC", 0xAB))
	require.NoError(t, s.Write("DATA", "HELLO"))
	assert.Equal(t, []byte{0, 'H', 'E', 'L', 'L', 'O', 0xAB}, s.Buffer())

	v, err := s.Read("DATA")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", v)
	v, err = s.Read("CRC")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xAB), v)
}

func TestStructureBoundsErrorNamesItem(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.DefineItem("DATA", 8, 0, accessor.DataTypeBlock)
	require.NoError(t, err)
	_, err = s.DefineItem("WORD", 0, 32, accessor.DataTypeUint)
	require.NoError(t, err)
	s.Resize(2)

	_, err = s.Read("WORD")
	require.Error(t, err)
	assert.ErrorIs(t, err, packets.ErrBounds)

	var ie *packets.ItemError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "WORD", ie.Item)
	assert.Equal(t, 0, ie.BitOffset)
	assert.Equal(t, 32, ie.BitSize)
}

func TestStructureReadAllAndFormatted(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.AppendItem("A", 8, accessor.DataTypeUint)
	require.NoError(t, err)
	_, err = s.AppendItem("B", 16, accessor.DataTypeBlock)
	require.NoError(t, err)
	require.NoError(t, s.SetBuffer([]byte{5, 0xDE, 0xAD}))

	all, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].Name)
	assert.Equal(t, uint64(5), all[0].Value)
	assert.Equal(t, []byte{0xDE, 0xAD}, all[1].Value)

	out, err := s.Formatted(0)
	require.NoError(t, err)
	assert.Contains(t, out, "A: 5\n")
	assert.Contains(t, out, "B:\n  00000000  de ad")

	out, err = s.Formatted(2, "B")
	require.NoError(t, err)
	assert.Equal(t, "  A: 5\n", out)
}

func TestStructureClone(t *testing.T) {
	s := packets.NewStructure(accessor.BigEndian)
	_, err := s.AppendItem("A", 8, accessor.DataTypeUint)
	require.NoError(t, err)
	require.NoError(t, s.SetBuffer([]byte{1}))

	c := s.Clone()
	require.NoError(t, c.Write("A", 2))
	item, err := c.Item("A")
	require.NoError(t, err)
	item.Description = "changed"

	v, err := s.Read("A")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
	orig, err := s.Item("A")
	require.NoError(t, err)
	assert.Empty(t, orig.Description)
}
