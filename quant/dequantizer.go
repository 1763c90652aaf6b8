package quant

// Dequantize inverts Quantize (spec §4.3): sign bit 31 is inspected and
// cleared, the magnitude is shifted back down, optionally scaled by delta
// for irreversible subbands, and the sign is reapplied. Output is in
// "natural units" (float64); the caller (ChannelPipeline/TileBank)
// chooses the concrete sample.Line representation per spec §4.3's table.
func Dequantize(p Params, samples []uint32, width, height int) [][]float64 {
	shift := uint(31 - p.KMax)
	out := make([][]float64, height)
	for y := 0; y < height; y++ {
		row := make([]float64, width)
		for x := 0; x < width; x++ {
			word := samples[y*width+x]
			sign := word&0x80000000 != 0
			mag := word &^ 0x80000000

			var v float64
			if p.Reversible {
				v = float64(mag >> shift)
			} else {
				// Invert encodedMag = trunc(|x| * (1/delta) * 2^shift):
				// |x| ~= encodedMag * delta / 2^shift.
				v = float64(mag) * p.Delta / float64(uint64(1)<<shift)
			}
			if sign {
				v = -v
			}
			row[x] = v
		}
		out[y] = row
	}
	return out
}

// QuantizeThenDequantize is a round-trip convenience: it returns
// Dequantize(Quantize(src)), which for reversible parameters reproduces
// integer samples whose magnitude is below 2^K_max.
func QuantizeThenDequantize(p Params, src [][]float64) ([][]float64, error) {
	res, err := Quantize(p, src)
	if err != nil {
		return nil, err
	}
	return Dequantize(p, res.Samples, res.Width, res.Height), nil
}
