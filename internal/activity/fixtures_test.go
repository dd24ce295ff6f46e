package activity

func binaryParameters() Parameters {
	return Parameters{
		R: []float64{0.9011, 0.6744, 1.6764, 3.1680},
		Q: []float64{0.8480, 0.5400, 1.4200, 2.4840},
		Nu: [][]int{
			{2, 0},
			{2, 0},
			{1, 0},
			{0, 1},
		},
		A: [][]float64{
			{0.0000, 0.0000, 232.10, 354.55},
			{0.0000, 0.0000, 232.10, 354.55},
			{114.80, 114.80, 0.0000, 202.30},
			{-25.31, -25.31, -146.3, 0.0000},
		},
	}
}

func ternaryParameters() Parameters {
	return Parameters{
		R: []float64{0.9011, 0.6744, 1.9031, 1.3013, 0.92},
		Q: []float64{0.8480, 0.5400, 1.7280, 1.2240, 1.40},
		Nu: [][]int{
			{0, 1, 1},
			{0, 0, 3},
			{0, 0, 1},
			{0, 1, 0},
			{1, 0, 0},
		},
		A: [][]float64{
			{0, 0, 232.1, 663.5, 1318},
			{0, 0, 232.1, 663.5, 1318},
			{114.8, 114.8, 0, 660.2, 200.8},
			{315.3, 315.3, -256.3, 0, -66.17},
			{300, 300, 72.87, -14.09, 0},
		},
	}
}
