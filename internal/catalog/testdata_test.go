package catalog

const madridHTML = `<html><body>
<table class="wikitable"><tr><th>Unrelated</th></tr><tr><td>x</td></tr></table>
<table class="wikitable sortable">
<tbody>
<tr><th>Number</th><th>Name</th><th>District</th><th>Image</th></tr>
<tr><td>11</td><td>Palacio<sup class="reference">[1]</sup></td><td rowspan="2">Centro</td><td>img</td></tr>
<tr><td>12</td><td>Embajadores</td><td>img</td></tr>
<tr><td>21</td><td>Imperial</td><td rowspan="3">Arganzuela</td><td>img</td></tr>
<tr><td>22</td><td>Acacias [2]</td><td>img</td></tr>
<tr><td>27</td><td>  Atocha  </td><td>img</td></tr>
<tr><th>Number</th><th>Name</th><th>District</th><th>Image</th></tr>
<tr><td>31</td><td>Pacífico</td><td>Retiro</td><td>img</td></tr>
</tbody>
</table>
</body></html>`

const parisHTML = `<html><body>
<table class="wikitable sortable">
<thead>
<tr><th>Arrondissement (R for Right Bank, L for Left Bank)</th><th>Name</th><th>Area (km2)</th></tr>
</thead>
<tbody>
<tr><td>1st (Ier) R</td><td>Louvre</td><td>1.826</td></tr>
<tr><td>2nd (IIe) R</td><td>Bourse</td><td>0.992</td></tr>
<tr><td colspan="2">Paris Centre</td><td>5.59</td></tr>
<tr><td>17th (XVIIe) R</td><td>Batignolles-Monceau</td><td>5.669</td></tr>
</tbody>
</table>
</body></html>`
