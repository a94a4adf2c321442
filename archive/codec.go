/*
Copyright © 2024 the uclchemtools authors.
This file is part of uclchemtools.

uclchemtools is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

uclchemtools is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with uclchemtools.  If not, see <http://www.gnu.org/licenses/>.
*/

package archive

import (
	"bytes"
	"encoding/gob"

	"github.com/klauspost/compress/zstd"
	"github.com/spatialmodel/uclchemtools"
)

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	decoder, _ = zstd.NewReader(nil)
)

// encodeTable serializes t as zstd-compressed gob.
func encodeTable(t *uclchemtools.Table) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(t); err != nil {
		return nil, err
	}
	return encoder.EncodeAll(b.Bytes(), nil), nil
}

func decodeTable(payload []byte) (*uclchemtools.Table, error) {
	raw, err := decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, err
	}
	t := new(uclchemtools.Table)
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(t); err != nil {
		return nil, err
	}
	return t, nil
}
