// Package costing calcule les totaux dérivés des opérations et des achats.
// Fonctions pures, sans effet de bord: le même calcul sert les chemins de
// création et de modification, les totaux stockés ne peuvent pas diverger
// des champs saisis.
package costing

import "github.com/shopspring/decimal"

// Round2 arrondit à 2 décimales, demi-écart loin de zéro.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Round3 arrondit à 3 décimales, demi-écart loin de zéro.
func Round3(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(3).Float64()
	return f
}

// OperationTotals dérive le temps total et le coût main d'œuvre d'une phase:
//
//	temps_total      = round3((temps_preparation + temps_unitaire × quantite) × coefficient)
//	cout_main_oeuvre = round2(temps_total × taux_horaire)
func OperationTotals(tempsPreparation, tempsUnitaire, quantite, coefficient, tauxHoraire float64) (tempsTotal, coutMainOeuvre float64) {
	prep := decimal.NewFromFloat(tempsPreparation)
	unitaire := decimal.NewFromFloat(tempsUnitaire)
	qty := decimal.NewFromFloat(quantite)
	coeff := decimal.NewFromFloat(coefficient)
	taux := decimal.NewFromFloat(tauxHoraire)

	total := prep.Add(unitaire.Mul(qty)).Mul(coeff).Round(3)
	cout := total.Mul(taux).Round(2)

	tempsTotal, _ = total.Float64()
	coutMainOeuvre, _ = cout.Float64()
	return tempsTotal, coutMainOeuvre
}

// AchatTotals dérive les totaux HT et TTC d'une ligne d'achat:
//
//	total_ht  = round2(quantite × prix_unitaire)
//	total_ttc = round2(total_ht × (1 + tva_pct/100))
func AchatTotals(quantite, prixUnitaire, tvaPct float64) (totalHT, totalTTC float64) {
	qty := decimal.NewFromFloat(quantite)
	prix := decimal.NewFromFloat(prixUnitaire)
	tva := decimal.NewFromFloat(tvaPct)

	ht := qty.Mul(prix).Round(2)
	ttc := ht.Mul(decimal.NewFromInt(1).Add(tva.Div(decimal.NewFromInt(100)))).Round(2)

	totalHT, _ = ht.Float64()
	totalTTC, _ = ttc.Float64()
	return totalHT, totalTTC
}
