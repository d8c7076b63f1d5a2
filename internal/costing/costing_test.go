package costing

import "testing"

func TestOperationTotals(t *testing.T) {
	tests := []struct {
		name                     string
		prep, unitaire, quantite float64
		coefficient, taux        float64
		wantTemps, wantCout      float64
	}{
		{
			name: "cas nominal",
			prep: 1.0, unitaire: 0.5, quantite: 10,
			coefficient: 1.2, taux: 40,
			wantTemps: 7.2, wantCout: 288.00,
		},
		{
			name: "sans préparation",
			prep: 0, unitaire: 0.25, quantite: 4,
			coefficient: 1, taux: 60,
			wantTemps: 1, wantCout: 60.00,
		},
		{
			name: "quantité nulle",
			prep: 2, unitaire: 0.5, quantite: 0,
			coefficient: 1.5, taux: 45,
			wantTemps: 3, wantCout: 135.00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temps, cout := OperationTotals(tt.prep, tt.unitaire, tt.quantite, tt.coefficient, tt.taux)
			if temps != tt.wantTemps {
				t.Errorf("temps total = %v, attendu %v", temps, tt.wantTemps)
			}
			if cout != tt.wantCout {
				t.Errorf("coût main d'oeuvre = %v, attendu %v", cout, tt.wantCout)
			}
		})
	}
}

func TestAchatTotals(t *testing.T) {
	ht, ttc := AchatTotals(4, 2.5, 20)
	if ht != 10.00 {
		t.Errorf("total HT = %v, attendu 10.00", ht)
	}
	if ttc != 12.00 {
		t.Errorf("total TTC = %v, attendu 12.00", ttc)
	}

	ht, ttc = AchatTotals(3, 1.75, 0)
	if ht != 5.25 {
		t.Errorf("total HT = %v, attendu 5.25", ht)
	}
	if ttc != 5.25 {
		t.Errorf("total TTC sans TVA = %v, attendu 5.25", ttc)
	}
}

// L'arrondi est à la demi éloignée de zéro, pas au pair.
func TestRoundHalfAwayFromZero(t *testing.T) {
	if got := Round2(1.005); got != 1.01 {
		t.Errorf("Round2(1.005) = %v, attendu 1.01", got)
	}
	if got := Round2(-1.005); got != -1.01 {
		t.Errorf("Round2(-1.005) = %v, attendu -1.01", got)
	}
	if got := Round2(1.25); got != 1.25 {
		t.Errorf("Round2(1.25) = %v, attendu 1.25 (déjà à 2 décimales)", got)
	}
	if got := Round3(0.0015); got != 0.002 {
		t.Errorf("Round3(0.0015) = %v, attendu 0.002", got)
	}
	if got := Round3(-0.0015); got != -0.002 {
		t.Errorf("Round3(-0.0015) = %v, attendu -0.002", got)
	}
}
